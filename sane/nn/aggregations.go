package nn

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AggregationFunc combines the weighted inputs of a unit.
type AggregationFunc func(inputs []float64) float64

// Aggregations maps configuration names to aggregation functions.
var Aggregations = map[string]AggregationFunc{
	"sum":     AggregateSum,
	"product": AggregateProduct,
	"min":     AggregateMin,
	"max":     AggregateMax,
	"mean":    AggregateMean,
	"average": AggregateMean,
	"median":  AggregateMedian,
}

// GetAggregation retrieves an aggregation function by name.
func GetAggregation(name string) (AggregationFunc, error) {
	if fn, ok := Aggregations[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown aggregation function: %s", name)
}

func AggregateSum(inputs []float64) float64 {
	return floats.Sum(inputs)
}

// AggregateProduct returns 0 for no inputs so that an unconnected unit stays silent.
func AggregateProduct(inputs []float64) float64 {
	if len(inputs) == 0 {
		return 0
	}
	return floats.Prod(inputs)
}

func AggregateMin(inputs []float64) float64 {
	if len(inputs) == 0 {
		return 0
	}
	return floats.Min(inputs)
}

func AggregateMax(inputs []float64) float64 {
	if len(inputs) == 0 {
		return 0
	}
	return floats.Max(inputs)
}

func AggregateMean(inputs []float64) float64 {
	if len(inputs) == 0 {
		return 0
	}
	return stat.Mean(inputs, nil)
}

func AggregateMedian(inputs []float64) float64 {
	if len(inputs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), inputs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
