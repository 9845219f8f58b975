package domain

// Intent is the routing decision for an incoming question.
type Intent string

const (
	IntentGreeting         Intent = "greeting"
	IntentMetaQuestion     Intent = "meta_question"
	IntentOutOfScope       Intent = "out_of_scope"
	IntentDocumentQuestion Intent = "document_question"
)

// SourceKind categorizes where a chunk's text came from for ranking purposes.
type SourceKind int

const (
	SourceUnknown SourceKind = iota
	SourceAuthoritative
	SourceTracker
)

func (k SourceKind) String() string {
	switch k {
	case SourceAuthoritative:
		return "authoritative"
	case SourceTracker:
		return "tracker"
	default:
		return "unknown"
	}
}
