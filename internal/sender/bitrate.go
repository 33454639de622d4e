package sender

// BitrateFor computes a target encoder bitrate in bits/sec from resolution
// and fps, per the table spec.md §4.5 defines. fps >= 50 selects the
// "high-fps" column.
func BitrateFor(width, height, fps int) int {
	pixels := float64(width * height)
	highFPS := fps >= 50

	switch {
	case pixels >= 8_000_000:
		if highFPS {
			return 35_000_000
		}
		return 25_000_000
	case pixels >= 3_500_000:
		if highFPS {
			return 18_000_000
		}
		return 12_000_000
	case pixels >= 2_000_000:
		if highFPS {
			return 12_000_000
		}
		return 8_000_000
	case pixels >= 900_000:
		if highFPS {
			return 7_500_000
		}
		return 5_000_000
	default:
		return int(pixels * float64(fps) * 0.08)
	}
}

// EvenDimensions rounds width and height down to the nearest even value,
// required by H.264 encoders (spec.md §4.5).
func EvenDimensions(width, height int) (int, int) {
	return width &^ 1, height &^ 1
}
