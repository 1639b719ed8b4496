package poller

import (
	"github.com/hay-kot/hwbot/internal/core/homework"
)

// Change is a status transition of the newest submission that has not been
// notified yet.
type Change struct {
	Record homework.Record
	Status homework.Status
}

// Detect compares the newest record against the last notified submission.
// Records are expected newest first. An empty slice is not a change and not
// an error. A status outside the known set returns
// *homework.UnknownStatusError.
func Detect(records []homework.Record, st State) (Change, bool, error) {
	if len(records) == 0 {
		return Change{}, false, nil
	}

	newest := records[0]
	status, err := homework.ParseStatus(newest.Status)
	if err != nil {
		return Change{}, false, err
	}

	if newest.Name == st.LastName && status == st.LastStatus {
		return Change{}, false, nil
	}

	return Change{Record: newest, Status: status}, true, nil
}
