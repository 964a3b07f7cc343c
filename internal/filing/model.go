package filing

import (
	"time"

	"edgarfeed/internal/sgml"
)

// Shape selects the entity sub-template.
type Shape string

const (
	ShapeCompany Shape = "company"
	ShapeOwner   Shape = "owner"
)

// Series provenance buckets.
const (
	BucketExisting   = "existing"
	BucketNew        = "new"
	BucketNewClasses = "new_classes"
)

// Filing is one submission and its children.
type Filing struct {
	Accession              string
	Type                   string
	PublicDocumentCount    string
	Period                 string
	Items                  []string
	FilingDate             string
	DateOfFilingDateChange string
	EffectivenessDate      string
	GroupMembers           []string
	Correction             bool
	Deletion               bool
	PrivateToPublic        bool

	// NewSeriesOwnerCIK is the OWNER-CIK of the NEW-SERIES-AND-CLASSES-CONTRACTS block.
	NewSeriesOwnerCIK string

	Entities  []Entity
	Series    []Series
	Mergers   []Merger
	Documents []Document

	// Extra holds top-level fields the model has no column for.
	Extra *sgml.Record
	// Unmapped lists record paths that were dropped during conversion.
	Unmapped []string
	// UpdatedAt is when the stored header row last changed. Set by the store.
	UpdatedAt time.Time
}

// Entity is one participant block (FILER, ISSUER, ...). Sequence is 1-based
// within the role.
type Entity struct {
	Role     string
	Sequence int
	Shape    Shape

	ConformedName        string
	CIK                  string
	AssignedSIC          string
	OrganizationName     *string
	IRSNumber            string
	StateOfIncorporation string
	FiscalYearEnd        string

	FilingValues    *FilingValues
	BusinessAddress *Address
	MailAddress     *Address
	FormerNames     []FormerName

	Extra *sgml.Record
}

type FilingValues struct {
	FormType   string `json:"form_type,omitempty"`
	Act        string `json:"act,omitempty"`
	FileNumber string `json:"file_number,omitempty"`
	FilmNumber string `json:"film_number,omitempty"`
}

type Address struct {
	Street1 string `json:"street1,omitempty"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// FormerName is a FORMER-NAME or FORMER-COMPANY entry; Company selects the tag.
type FormerName struct {
	Sequence    int
	Company     bool
	Name        string
	DateChanged string
}

// Series is one SERIES or NEW-SERIES block in a provenance bucket.
type Series struct {
	Bucket     string
	Sequence   int
	OwnerCIK   string
	SeriesID   string
	SeriesName string
	Classes    []ClassContract
}

type ClassContract struct {
	Sequence int
	ID       string
	Name     string
	Ticker   string
}

// Merger keeps a MERGER block as an ordered record.
type Merger struct {
	Sequence int
	Data     *sgml.Record
}

// Document is the header metadata of one DOCUMENT. Sequence is the 1-based
// position in the submission; SequenceText is the header's own SEQUENCE value.
type Document struct {
	Sequence     int
	Type         string
	SequenceText string
	Filename     string
	Description  string
	Digest       string
	BlobKey      string
}

