package core

import (
	"time"
)

// NoticeLevel ranks a user-visible notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a message for the user. Failures never surface any other way.
type Notice struct {
	Seq     uint64      `json:"seq"`
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

const maxNotices = 64

// noticeLog keeps the most recent notices in a ring.
type noticeLog struct {
	seq   uint64
	items []Notice
}

func (n *noticeLog) add(level NoticeLevel, msg string) Notice {
	n.seq++
	notice := Notice{Seq: n.seq, Level: level, Message: msg, At: time.Now()}
	if len(n.items) == maxNotices {
		copy(n.items, n.items[1:])
		n.items = n.items[:maxNotices-1]
	}
	n.items = append(n.items, notice)
	return notice
}

func (n *noticeLog) since(seq uint64) []Notice {
	var out []Notice
	for _, item := range n.items {
		if item.Seq > seq {
			out = append(out, item)
		}
	}
	return out
}
