package chunk

import "github.com/bonehead-labs/fmf"

// GroupImages partitions a slice of blob-bearing Documents into
// fixed-size ImageGroups, preserving document order. groupSize <= 0
// is treated as 1.
func GroupImages(docs []fmf.Document, groupSize int) []fmf.ImageGroup {
	if groupSize <= 0 {
		groupSize = 1
	}
	var groups []fmf.ImageGroup
	for start := 0; start < len(docs); start += groupSize {
		end := start + groupSize
		if end > len(docs) {
			end = len(docs)
		}
		groups = append(groups, fmf.ImageGroup{
			Index:     len(groups),
			Documents: append([]fmf.Document(nil), docs[start:end]...),
		})
	}
	return groups
}
