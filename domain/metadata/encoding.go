package metadata

import "sort"

// LabelEncoding maps target classes to integer codes; codes are positions in Classes
type LabelEncoding struct {
	Column  string   `json:"column"`
	Classes []string `json:"classes"`
}

// NewLabelEncoding builds an encoding from the distinct class labels, sorted
func NewLabelEncoding(column string, labels []string) *LabelEncoding {
	seen := make(map[string]bool, len(labels))
	classes := make([]string, 0, len(labels))
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			classes = append(classes, l)
		}
	}
	sort.Strings(classes)
	return &LabelEncoding{Column: column, Classes: classes}
}

// Encode returns the code for label
func (e *LabelEncoding) Encode(label string) (int, bool) {
	i := sort.SearchStrings(e.Classes, label)
	if i < len(e.Classes) && e.Classes[i] == label {
		return i, true
	}
	return -1, false
}

// Decode returns the label for code
func (e *LabelEncoding) Decode(code int) (string, bool) {
	if code < 0 || code >= len(e.Classes) {
		return "", false
	}
	return e.Classes[code], true
}
