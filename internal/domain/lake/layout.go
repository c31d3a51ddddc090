package lake

import (
	"fmt"
	"path"
	"strings"

	"github.com/riskibarqy/epl-data-lake/internal/domain/catalog"
	"github.com/riskibarqy/epl-data-lake/internal/domain/team"
)

// ObjectExtension is the suffix of every line-delimited JSON object.
const ObjectExtension = ".jsonl"

// Layout names every resource the setup run creates and teardown removes.
type Layout struct {
	Bucket        string
	RawPrefix     string
	ResultsPrefix string
	Database      string
	Table         string
	WorkGroup     string
	Columns       []catalog.Column
}

// ObjectKey is the deterministic per-team object key under the raw prefix.
func (l Layout) ObjectKey(t team.Team) string {
	return path.Join(cleanPrefix(l.RawPrefix), t.Slug()+ObjectExtension)
}

// TableLocation is the storage prefix the catalog table is bound to.
func (l Layout) TableLocation() string {
	return fmt.Sprintf("s3://%s/%s/", l.Bucket, cleanPrefix(l.RawPrefix))
}

// ResultsLocation is where the query service writes result files.
func (l Layout) ResultsLocation() string {
	return fmt.Sprintf("s3://%s/%s/", l.Bucket, cleanPrefix(l.ResultsPrefix))
}

// TableDefinition builds the catalog table bound to the raw prefix.
func (l Layout) TableDefinition() catalog.Table {
	return catalog.Table{
		Database:    l.Database,
		Name:        l.Table,
		Location:    l.TableLocation(),
		Description: "Player squads pulled from the sports data provider, one JSON object per line.",
		Columns:     l.Columns,
	}
}

func cleanPrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}
