package models

import "time"

// DefaultSessionID is used when a caller does not identify its session.
const DefaultSessionID = "default"

type ImageTag string

const (
	TagPrevious ImageTag = "previous"
	TagCurrent  ImageTag = "current"
)

// ImageTags lists the tags of a pair in the order they are presented to the model.
var ImageTags = []ImageTag{TagPrevious, TagCurrent}

func (t ImageTag) Valid() bool {
	return t == TagPrevious || t == TagCurrent
}

type Image struct {
	Data     []byte
	MIMEType string
}

// ImagePair is the visual context of one talk turn: what the camera saw before and what it sees now.
type ImagePair struct {
	Previous Image
	Current  Image
}

// UploadBatch is a device upload. Both tags must be present in the same batch.
type UploadBatch struct {
	Previous []byte
	Current  []byte
}

type Decision string

const (
	DecisionGeneralKnowledge Decision = "general_knowledge"
	DecisionVisualContext    Decision = "visual_context"
)

type PartKind string

const (
	PartText  PartKind = "text"
	PartImage PartKind = "image"
)

type ContentPart struct {
	Kind     PartKind
	Text     string
	Tag      ImageTag // image parts only
	MIMEType string   // image parts only
	Data     []byte   // image parts only
}

func TextPart(s string) ContentPart {
	return ContentPart{Kind: PartText, Text: s}
}

func ImagePart(tag ImageTag, img Image) ContentPart {
	return ContentPart{Kind: PartImage, Tag: tag, MIMEType: img.MIMEType, Data: img.Data}
}

// ReasoningRequest is the provider-neutral multimodal request sent to the reasoning service.
type ReasoningRequest struct {
	Decision          Decision
	SystemInstruction string
	Parts             []ContentPart
}

func (r ReasoningRequest) ImageParts() []ContentPart {
	var out []ContentPart
	for _, p := range r.Parts {
		if p.Kind == PartImage {
			out = append(out, p)
		}
	}
	return out
}

// TalkReply is what a query caller always receives.
type TalkReply struct {
	SessionID string   `json:"session_id"`
	Decision  Decision `json:"decision"`
	Reply     string   `json:"reply"`
	Fallback  bool     `json:"fallback"`
	Consumed  bool     `json:"consumed"`  // image pair was used and purged
	NotReady  bool     `json:"not_ready"` // visual query without a ready pair
}

type EventType string

const (
	EventReady        EventType = "ready"
	EventNotReady     EventType = "not_ready"
	EventBeginCapture EventType = "begin_capture"
	EventReply        EventType = "reply"
	EventTranscript   EventType = "transcript"
	EventEmergency    EventType = "emergency"
)

// Event is pushed to live clients and devices of a session after a state transition.
type Event struct {
	Type      EventType  `json:"type"`
	SessionID string     `json:"session_id"`
	Reply     *TalkReply `json:"reply,omitempty"`
	Text      string     `json:"text,omitempty"`
	At        time.Time  `json:"at"`
}
