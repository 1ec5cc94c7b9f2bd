package compress

// bitrate floors below which transcoding produces unusable evidence.
const (
	minVideoBitrate = 100_000
	minAudioBitrate = 8_000
)

// targetBitrate computes the bits-per-second target that fits budgetBytes
// into durationSeconds, capped at ceiling and floored at the minimum usable
// rate. A zero or negative duration disables bitrate planning.
func targetBitrate(budgetBytes int64, durationSeconds float64, ceiling, floor int64) int64 {
	if durationSeconds <= 0 || budgetBytes <= 0 {
		return 0
	}
	target := int64(float64(budgetBytes*8) / durationSeconds)
	if ceiling > 0 && target > ceiling {
		target = ceiling
	}
	if target < floor {
		target = floor
	}
	return target
}

// retryBitrate reduces a bitrate by 30 percent for the second transcode pass
// after the first one overshot the budget.
func retryBitrate(bitrate, floor int64) int64 {
	reduced := bitrate * 7 / 10
	if reduced < floor {
		reduced = floor
	}
	return reduced
}
