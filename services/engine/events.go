package engine

// EventType tags entries in the replay event log.
type EventType int

const (
	EventFill EventType = iota
	EventPartialFill
	EventRiskReject
	EventCrossedBook
)

func (t EventType) String() string {
	switch t {
	case EventFill:
		return "fill"
	case EventPartialFill:
		return "partial_fill"
	case EventRiskReject:
		return "risk_reject"
	case EventCrossedBook:
		return "crossed_book"
	default:
		return "unknown"
	}
}

// Event is one notable occurrence during a replay, kept for forensics.
type Event struct {
	TsUs   uint64
	Index  uint64 // replay event index
	Type   EventType
	Detail string
}

// EventLog is an append-only log of notable replay events. A nil log is
// valid and records nothing.
type EventLog struct {
	Events []Event
}

func (l *EventLog) Append(e Event) {
	if l == nil {
		return
	}
	l.Events = append(l.Events, e)
}
