package features

const MaxSamples = 200

// Downsample keeps every step-th sample so that at most maxPts remain.
func Downsample(samples []Sample, maxPts int) []Sample {
	if maxPts < 1 {
		maxPts = MaxSamples
	}

	step := (len(samples) + maxPts - 1) / maxPts
	if step < 1 {
		step = 1
	}

	out := make([]Sample, 0, len(samples)/step+1)
	for i := 0; i < len(samples); i += step {
		out = append(out, samples[i])
	}
	return out
}
