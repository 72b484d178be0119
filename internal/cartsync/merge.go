package cartsync

import "sort"

// ChangeOp is the server call needed to converge one key.
type ChangeOp string

const (
	ChangeInsert ChangeOp = "insert"
	ChangeUpdate ChangeOp = "update"
	ChangeDelete ChangeOp = "delete"
)

// Change is one entry of a Delta.
type Change struct {
	Key      Key
	Op       ChangeOp
	Quantity int
}

// Merge combines the server and local carts. Server lines win where both
// carry a key; local-only keys are kept.
func Merge(server, local []Line) []Line {
	merged := linesToMap(server)
	for _, line := range local {
		if line.Quantity <= 0 {
			continue
		}
		if _, ok := merged[line.Key()]; ok {
			continue
		}
		merged[line.Key()] = line
	}
	return sortedLines(merged)
}

// Delta lists the calls that turn the server cart into target: new keys are
// inserted, changed quantities updated, and keys missing from target deleted.
func Delta(server, target []Line) []Change {
	serverMap := linesToMap(server)
	targetMap := linesToMap(target)

	var changes []Change
	for key, line := range targetMap {
		existing, ok := serverMap[key]
		switch {
		case !ok:
			changes = append(changes, Change{Key: key, Op: ChangeInsert, Quantity: line.Quantity})
		case existing.Quantity != line.Quantity:
			changes = append(changes, Change{Key: key, Op: ChangeUpdate, Quantity: line.Quantity})
		}
	}
	for key := range serverMap {
		if _, ok := targetMap[key]; !ok {
			changes = append(changes, Change{Key: key, Op: ChangeDelete})
		}
	}
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Key.String() < changes[j].Key.String()
	})
	return changes
}
