package telemetry

// Generator computes the next tick sample from the previous one.
type Generator func(prev float64, r Rand) float64

// Transform rewrites the latest sample of a channel during an anomaly.
type Transform func(prev float64, r Rand) float64

// Generator kinds accepted in ChannelSpec.Kind.
const (
	KindConstant = "constant"
	KindLinear   = "linear"
	KindUniform  = "uniform"
	KindWalk     = "walk"
	KindHold     = "hold"
)

// Constant always yields v.
func Constant(v float64) Generator {
	return func(float64, Rand) float64 { return v }
}

// Linear adds step to the previous sample. A negative step decays.
func Linear(step float64) Generator {
	return func(prev float64, _ Rand) float64 { return prev + step }
}

// Uniform draws base + r*spread, ignoring the previous sample.
func Uniform(base, spread float64) Generator {
	return func(_ float64, r Rand) float64 { return base + r.Float64()*spread }
}

// Walk moves the previous sample by a random amount in [-step, step).
func Walk(step float64) Generator {
	return func(prev float64, r Rand) float64 { return prev + (r.Float64()*2-1)*step }
}

// Hold repeats the previous sample.
func Hold() Generator {
	return func(prev float64, _ Rand) float64 { return prev }
}

// Set replaces the sample with v.
func Set(v float64) Transform {
	return func(float64, Rand) float64 { return v }
}

// Add offsets the sample by d.
func Add(d float64) Transform {
	return func(prev float64, _ Rand) float64 { return prev + d }
}

// Scale multiplies the sample by f.
func Scale(f float64) Transform {
	return func(prev float64, _ Rand) float64 { return prev * f }
}

// UniformIn draws a value in [min, max).
func UniformIn(min, max float64) Transform {
	return func(_ float64, r Rand) float64 { return min + r.Float64()*(max-min) }
}
