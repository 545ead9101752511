// Package preprocess normalizes a photographed answer sheet before marks are
// read: it picks the upright quarter turn and removes perspective skew.
package preprocess

import (
	"image"

	"github.com/ironsheep/omr-grader/internal/imaging"
)

// Candidates lists the clockwise quarter turns tried by DetectOrientation,
// in tie-break order.
var Candidates = [4]int{0, 90, 180, 270}

// Canny thresholds used for orientation scoring.
const (
	cannyLow  = 60
	cannyHigh = 180
)

// OrientationScore measures how much vertical edge structure img has: the
// mean absolute horizontal gradient of its Canny edge map. Bubble columns
// and the vertical rules of the form dominate on an upright sheet.
func OrientationScore(img image.Image) float64 {
	edges := imaging.Canny(imaging.Gray(img), cannyLow, cannyHigh)
	return imaging.MeanAbs(imaging.SobelX(edges))
}

// ScoreOrientations returns OrientationScore for img rotated by each of
// Candidates.
func ScoreOrientations(img image.Image) [4]float64 {
	var scores [4]float64
	for i, deg := range Candidates {
		scores[i] = OrientationScore(imaging.Rotate(img, float64(deg)))
	}
	return scores
}

// DetectOrientation rotates img by every candidate quarter turn and keeps
// the one with the highest OrientationScore. The earliest candidate wins
// ties. It returns the rotated copy and the clockwise rotation applied.
//
// The score does not change under a half turn, so the result is only
// determined up to 180 degrees.
func DetectOrientation(img image.Image) (*image.NRGBA, int) {
	var (
		best      *image.NRGBA
		bestDeg   int
		bestScore = -1.0
	)
	for _, deg := range Candidates {
		rot := imaging.Rotate(img, float64(deg))
		if s := OrientationScore(rot); s > bestScore {
			best, bestDeg, bestScore = rot, deg, s
		}
	}
	return best, bestDeg
}

// Rotate returns img rotated clockwise by degrees. Quarter turns are exact;
// other angles are bilinear with edge-replicated borders.
func Rotate(img image.Image, degrees float64) *image.NRGBA {
	return imaging.Rotate(img, degrees)
}
