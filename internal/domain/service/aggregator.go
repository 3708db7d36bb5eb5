package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"obpilot/internal/domain/model"
)

// TopClustersPerSide is the fixed cut after ranking buckets by volume.
const TopClustersPerSide = 10

// ClusterAggregator groups raw order-book levels into coarse price buckets
// and reduces each bucket to a single tick-aligned weighted price level.
type ClusterAggregator struct {
	bucketWidth decimal.Decimal
	tickSize    decimal.Decimal
}

func NewClusterAggregator(bucketWidth, tickSize decimal.Decimal) *ClusterAggregator {
	return &ClusterAggregator{bucketWidth: bucketWidth, tickSize: tickSize}
}

// bucket accumulates one coarse price range. The raw contributing prices are
// kept so the weighted average reflects the precise levels, not the bucket
// boundary.
type bucket struct {
	key      decimal.Decimal
	totalQty decimal.Decimal
	levels   []level
}

type level struct {
	price decimal.Decimal
	qty   decimal.Decimal
}

// Aggregate turns one depth snapshot into ranked cluster lists. Longs come
// from bids sorted by price descending, shorts from asks ascending. Each list
// holds at most TopClustersPerSide entries and is empty when that side of the
// snapshot is empty. Unparseable entries are dropped silently.
func (a *ClusterAggregator) Aggregate(book *model.OrderBookSnapshot) (longs, shorts []model.Cluster) {
	longs = a.aggregateSide(book.Bids)
	shorts = a.aggregateSide(book.Asks)

	sort.Slice(longs, func(i, j int) bool { return longs[i].Price.GreaterThan(longs[j].Price) })
	sort.Slice(shorts, func(i, j int) bool { return shorts[i].Price.LessThan(shorts[j].Price) })
	return longs, shorts
}

func (a *ClusterAggregator) aggregateSide(side map[string]string) []model.Cluster {
	buckets := make(map[string]*bucket)

	for ps, qs := range side {
		price, err := decimal.NewFromString(ps)
		if err != nil {
			continue
		}
		qty, err := decimal.NewFromString(qs)
		if err != nil || qty.Sign() <= 0 {
			continue
		}

		key, _ := SnapToTick(price, a.bucketWidth)
		ks := key.String()
		b := buckets[ks]
		if b == nil {
			b = &bucket{key: key}
			buckets[ks] = b
		}
		b.totalQty = b.totalQty.Add(qty)
		b.levels = append(b.levels, level{price: price, qty: qty})
	}

	ranked := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ranked = append(ranked, b)
	}
	// volume rank; bucket key breaks ties so the cut is deterministic
	sort.Slice(ranked, func(i, j int) bool {
		if c := ranked[i].totalQty.Cmp(ranked[j].totalQty); c != 0 {
			return c > 0
		}
		return ranked[i].key.GreaterThan(ranked[j].key)
	})
	if len(ranked) > TopClustersPerSide {
		ranked = ranked[:TopClustersPerSide]
	}

	clusters := make([]model.Cluster, 0, len(ranked))
	for _, b := range ranked {
		if b.totalQty.Sign() <= 0 {
			continue
		}
		weighted := decimal.Zero
		for _, lv := range b.levels {
			weighted = weighted.Add(lv.price.Mul(lv.qty))
		}
		avg := weighted.Div(b.totalQty)
		snapped, _ := SnapToTick(avg, a.tickSize)
		clusters = append(clusters, model.Cluster{Price: snapped, Volume: b.totalQty})
	}
	return clusters
}
