// Package invman embeds the inventory consumption tracker in a Go program.
//
// Every item holds a supply and four scheduled dose amounts (morning, noon,
// evening, night). The inventory derives the daily consumption and the days
// until the supply runs out, and keeps two displays per item up to date: a
// warning that turns on when depletion is closer than the item's threshold,
// and a prediction of the day the supply is empty.
//
//	inv, _ := invman.New(ctx)
//	defer inv.Close()
//
//	st, _ := inv.Register(ctx, invman.Item{
//	    Name:            "Aspirin",
//	    Size:            "500mg",
//	    WarnBeforeEmpty: 7,
//	    Quantities: map[invman.Quantity]float64{
//	        invman.Supply:  30,
//	        invman.Morning: 1,
//	        invman.Evening: 1,
//	    },
//	})
//	_, _ = inv.TakeDose(ctx, st.ID, invman.Morning)
//
// Display changes can be consumed in-process with Watch, or published to
// Redis pub/sub with WithRedis.
package invman
