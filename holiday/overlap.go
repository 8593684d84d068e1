/*
overlap.go - Double-booking detection

PURPOSE:
  Given a candidate date range and a staff member's existing requests,
  return the subset whose ranges intersect the candidate, restricted by a
  status filter. Rejected and cancelled requests never conflict.

ALGORITHM:
  Inclusive interval intersection per pair: [a1,a2] and [b1,b2] overlap
  iff a1 <= b2 && b1 <= a2. Linear in the number of existing requests -
  leave requests per person per year number in the tens, so no interval
  tree is warranted.
*/
package holiday

// StatusFilter selects which request statuses count as potential conflicts.
type StatusFilter func(Status) bool

// ApprovedOnly matches approved requests.
func ApprovedOnly(s Status) bool { return s == StatusApproved }

// ApprovedOrPending matches approved and pending requests.
func ApprovedOrPending(s Status) bool { return s == StatusApproved || s == StatusPending }

// Overlapping returns the existing requests whose range intersects the
// candidate and whose status passes the filter. A nil filter defaults to
// ApprovedOrPending; rejected and cancelled are excluded regardless.
// Adjacent but non-overlapping ranges are not conflicts.
func Overlapping(candidate DateRange, existing []BookingRequest, filter StatusFilter) []BookingRequest {
	if filter == nil {
		filter = ApprovedOrPending
	}
	var hits []BookingRequest
	for _, req := range existing {
		if req.Status == StatusRejected || req.Status == StatusCancelled {
			continue
		}
		if !filter(req.Status) {
			continue
		}
		if candidate.Overlaps(req.Range) {
			hits = append(hits, req)
		}
	}
	return hits
}
