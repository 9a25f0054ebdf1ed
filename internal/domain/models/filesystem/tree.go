package filesystem

import "time"

// TreeNode is a node in a materialized tree. Plain trees leave ShareContext
// nil; shared trees carry the root share's context on every node.
type TreeNode struct {
	Node
	*ShareContext
	Direction ShareDirection `json:"direction,omitempty"`
	Children  []*TreeNode    `json:"children"`
}

// Size returns the file size, or the aggregate size for folders.
func (t *TreeNode) Size() int64 {
	if t.FileInfo == nil {
		return 0
	}
	return t.FileInfo.FileSize
}

// Shared reports whether t was produced under a share.
func (t *TreeNode) Shared() bool {
	return t.ShareContext != nil
}

// Find returns the first node named name among t's direct children.
func (t *TreeNode) Find(name string) *TreeNode {
	for _, c := range t.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// MoveResult reports how many nodes a move touched. Zero means the node
// already lived in the target.
type MoveResult struct {
	Affected int `json:"affected"`
}

// DeleteResult describes one cascade group put into the trash.
type DeleteResult struct {
	ID        string    `json:"id"`
	DeletedAt time.Time `json:"deleted_at"`
	Affected  int       `json:"affected"`
	NodeIDs   []string  `json:"node_ids"`
}

// RestoreResult lists the nodes taken out of the trash.
type RestoreResult struct {
	Restored []string `json:"restored"`
}

// StorageUsage is computed at read time from the node table.
type StorageUsage struct {
	UsedBytes    int64  `json:"used_bytes"`
	TrashedBytes int64  `json:"trashed_bytes"`
	QuotaBytes   *int64 `json:"quota_bytes,omitempty"`
}
