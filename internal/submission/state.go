package submission

// State is a position in the submission state machine.
type State int

const (
	StateInit State = iota
	StateDocHeader
	StateDocBody
	StateDocFooter
	StateReadComplete
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateDocHeader:
		return "doc_header"
	case StateDocBody:
		return "doc_body"
	case StateDocFooter:
		return "doc_footer"
	case StateReadComplete:
		return "read_complete"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

const (
	tagSubmissionClose = "</SUBMISSION>"
	tagDocument        = "<DOCUMENT>"
	tagDocumentClose   = "</DOCUMENT>"
	tagText            = "<TEXT>"
	tagTextClose       = "</TEXT>"
	tagPDF             = "<PDF>"
	tagPDFClose        = "</PDF>"
	tagFilename        = "<FILENAME>"
	tagSequence        = "<SEQUENCE>"
)
