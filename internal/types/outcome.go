package types

// ParseOutcome is the result of extracting a single candidate container:
// exactly one of Item and Failure is set.
type ParseOutcome struct {
	Item    *TrendItem `json:"item,omitempty"`
	Failure *Failure   `json:"failure,omitempty"`
}

// Success wraps an extracted item.
func Success(item *TrendItem) ParseOutcome {
	return ParseOutcome{Item: item}
}

// Miss builds a structural-miss outcome for the container at index.
func Miss(sourceID string, index int, reason Reason) ParseOutcome {
	return ParseOutcome{Failure: &Failure{
		SourceID:       sourceID,
		ContainerIndex: index,
		Reason:         reason,
		Kind:           KindStructuralMiss,
	}}
}

// OK reports whether the outcome carries an item.
func (o ParseOutcome) OK() bool {
	return o.Item != nil
}

// Split separates outcomes into items and failures, preserving order.
func Split(outcomes []ParseOutcome) ([]TrendItem, []Failure) {
	items := make([]TrendItem, 0, len(outcomes))
	var failures []Failure
	for _, o := range outcomes {
		switch {
		case o.Item != nil:
			items = append(items, *o.Item)
		case o.Failure != nil:
			failures = append(failures, *o.Failure)
		}
	}
	return items, failures
}
