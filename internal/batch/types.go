package batch

// FacetKind identifies one deliverable item inside a job.
type FacetKind string

const (
	FacetText  FacetKind = "text"
	FacetImage FacetKind = "image"
	FacetVideo FacetKind = "video"
	FacetFile  FacetKind = "file"
)

func (k FacetKind) IsAttachment() bool { return k != FacetText }

// FacetStatus is the delivery outcome of one facet.
// Transitions are Pending -> Sent or Pending -> Failed, never backward;
// the dispatcher is the only writer.
type FacetStatus string

const (
	StatusPending FacetStatus = "pending"
	StatusSent    FacetStatus = "sent"
	StatusFailed  FacetStatus = "failed"
)

// Facet is one deliverable item: either text content or a typed attachment.
type Facet struct {
	Kind    FacetKind
	Content string // text facets
	Path    string // attachment facets
	Status  FacetStatus
}

// Job is one recipient's unit of work.
//
// Index is the stable ordinal position in the batch (0-based); it is the
// resume cursor and the checkpoint key.
type Job struct {
	Index     int
	Recipient string
	Facets    []Facet
	// Schedule is an optional time-of-day ("HH:MM:SS" or "HH:MM").
	// Empty means deliver as soon as the job is reached in sequence.
	Schedule string
}

// Sent reports whether every present facet of the job was delivered.
// A job with no facets is vacuously sent.
func (j *Job) Sent() bool {
	for i := range j.Facets {
		if j.Facets[i].Status != StatusSent {
			return false
		}
	}
	return true
}
