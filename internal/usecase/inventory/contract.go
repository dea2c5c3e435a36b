package inventory

import (
	"github.com/kailas-cloud/invman/internal/domain/item"
	"github.com/kailas-cloud/invman/internal/domain/tracker"
	"github.com/kailas-cloud/invman/internal/usecase/display"
)

// Status is the full read model of one item.
type Status struct {
	Item       item.Item
	Snapshot   tracker.Snapshot
	Warning    display.WarningState
	Prediction display.PredictionState
}
