package scheduler

// Observer is notified from the control loop. Implementations must return
// quickly; they run between scheduled actions.
type Observer interface {
	// Sampled is called after each poll with the smoothed ambient reading, the
	// brightness read back from the display and the computed target.
	Sampled(ambient float64, current, target int)

	// Applied is called after each fade step was written to the display.
	Applied(value, target int)
}

// Observers fans notifications out to several observers in order.
type Observers []Observer

func (o Observers) Sampled(ambient float64, current, target int) {
	for _, obs := range o {
		obs.Sampled(ambient, current, target)
	}
}

func (o Observers) Applied(value, target int) {
	for _, obs := range o {
		obs.Applied(value, target)
	}
}
