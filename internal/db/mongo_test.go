package ledger

import (
	"testing"

	model "github.com/glkeru/loyalty/ledger/internal/models"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestLotsFilter(t *testing.T) {
	require.Equal(t, bson.M{}, lotsFilter(model.LotFilter{}))

	until := t0
	f := lotsFilter(model.LotFilter{Payer: "A", Until: &until, Open: true})
	require.Equal(t, bson.M{
		"payer":     "A",
		"timestamp": bson.M{"$lte": t0},
		"$expr":     bson.M{"$lt": bson.A{"$used", "$points"}},
	}, f)
}
