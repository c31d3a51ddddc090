package player

// TeamField is the record field carrying the owning team's name.
const TeamField = "Team"

// Record is one flat player object as returned by the data provider.
type Record map[string]any

// WithTeam returns a copy of the record with the team field set.
func (r Record) WithTeam(name string) Record {
	out := make(Record, len(r)+1)
	for key, value := range r {
		out[key] = value
	}
	out[TeamField] = name
	return out
}
