package market

// Direction is the side of a position.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

func (d Direction) Valid() bool {
	return d == Long || d == Short
}

// TargetFrom returns the profit-target price for an entry at price,
// offset by points in the direction of profit.
func (d Direction) TargetFrom(price, points float64) float64 {
	if d == Long {
		return price + points
	}
	return price - points
}

// StopFrom returns the stop-loss price for an entry at price.
func (d Direction) StopFrom(price, points float64) float64 {
	if d == Long {
		return price - points
	}
	return price + points
}
