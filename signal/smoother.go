package signal

// Smoother is a constant-velocity Kalman filter over the signal. Time is
// measured in frames, so the output does not depend on processing speed.
// It is meant for display, the raw signal stays authoritative.
type Smoother struct {
	// State vector [value, velocity]
	state [2]float64
	// Covariance matrix
	P [2][2]float64
	// Process noise
	Q [2][2]float64
	// Measurement noise
	R float64

	lastFrame   int64
	initialized bool
}

// NewSmoother creates a smoother. q scales the process noise and r is the
// measurement variance in squared pixels.
func NewSmoother(q, r float64) *Smoother {
	sm := &Smoother{R: r}
	sm.Q = [2][2]float64{
		{q / 4, q / 2},
		{q / 2, q},
	}
	sm.resetCovariance()
	return sm
}

// NewDefaultSmoother returns the smoother used for the live trace
func NewDefaultSmoother() *Smoother {
	return NewSmoother(0.05, 4.0)
}

func (sm *Smoother) resetCovariance() {
	sm.P = [2][2]float64{{1000, 0}, {0, 1000}}
}

// Update feeds the measurement taken at frame and returns the filtered
// value and velocity (pixels per frame)
func (sm *Smoother) Update(frame int64, value float64) (float64, float64) {
	if !sm.initialized {
		sm.state = [2]float64{value, 0}
		sm.lastFrame = frame
		sm.initialized = true
		return value, 0
	}

	dt := float64(frame - sm.lastFrame)
	if dt < 1 {
		dt = 1
	}
	sm.lastFrame = frame

	// Predict
	predicted := [2]float64{sm.state[0] + sm.state[1]*dt, sm.state[1]}

	// P = F * P * F' + Q*dt with F = [[1 dt] [0 1]]
	p00 := sm.P[0][0] + dt*(sm.P[1][0]+sm.P[0][1]) + dt*dt*sm.P[1][1] + sm.Q[0][0]*dt
	p01 := sm.P[0][1] + dt*sm.P[1][1] + sm.Q[0][1]*dt
	p10 := sm.P[1][0] + dt*sm.P[1][1] + sm.Q[1][0]*dt
	p11 := sm.P[1][1] + sm.Q[1][1]*dt

	// Update with H = [1 0]
	innovation := value - predicted[0]
	s := p00 + sm.R
	k0 := p00 / s
	k1 := p10 / s

	sm.state[0] = predicted[0] + k0*innovation
	sm.state[1] = predicted[1] + k1*innovation

	sm.P = [2][2]float64{
		{(1 - k0) * p00, (1 - k0) * p01},
		{p10 - k1*p00, p11 - k1*p01},
	}

	return sm.state[0], sm.state[1]
}

// Value returns the current estimate
func (sm *Smoother) Value() float64 {
	return sm.state[0]
}

// Reset forgets the history, the next Update starts over
func (sm *Smoother) Reset() {
	sm.initialized = false
	sm.state = [2]float64{}
	sm.resetCovariance()
}
