package domain

type RelabelStatus string

const (
	RelabelStatusPending  RelabelStatus = "pending"
	RelabelStatusApplied  RelabelStatus = "applied"
	RelabelStatusRejected RelabelStatus = "rejected"
)

// RelabelJob rewrites one stored location from its legacy text to canonical form.
type RelabelJob struct {
	RecordID string
	From     string
	To       string
	Status   RelabelStatus
}

// NewRelabelJob classifies a stored location. Canonical input yields ok=false.
func NewRelabelJob(recordID, location string) (RelabelJob, bool) {
	res := CanonicalizeLocation(location)
	switch res.Status {
	case LocationNormalized:
		return RelabelJob{RecordID: recordID, From: location, To: res.Value, Status: RelabelStatusPending}, true
	case LocationInvalid:
		return RelabelJob{RecordID: recordID, From: location, Status: RelabelStatusRejected}, true
	}
	return RelabelJob{}, false
}
