package colour

import (
	"image"
	"math"
	"math/rand/v2"
)

// cluster is one k-means centroid and the share of samples assigned to it.
type cluster struct {
	r, g, b float64
	weight  float64
}

type point3D struct {
	r, g, b float64
}

func (p point3D) distance(o point3D) float64 {
	dr := p.r - o.r
	dg := p.g - o.g
	db := p.b - o.b
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

const (
	maxSamples      = 2000
	maxIterations   = 20
	convergenceStep = 2.0
)

// samplePixels returns opaque pixels of img, grid-sampled for large images.
func samplePixels(img image.Image) []point3D {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return nil
	}

	step := 1
	if total > maxSamples {
		step = max(int(math.Sqrt(float64(total)/float64(maxSamples))), 1)
	}

	points := make([]point3D, 0, min(total, maxSamples))
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, a := img.At(x, y).RGBA()
			if a < 0x8000 {
				continue
			}
			points = append(points, point3D{
				r: float64(r >> 8),
				g: float64(g >> 8),
				b: float64(b >> 8),
			})
			if len(points) >= maxSamples {
				return points
			}
		}
	}
	return points
}

// kmeans clusters points into at most k centroids using k-means++ seeding.
func kmeans(points []point3D, k int, rng *rand.Rand) []cluster {
	if len(points) == 0 || k < 1 {
		return nil
	}
	k = min(k, len(points))

	centroids := seedCentroids(points, k, rng)
	assignments := make([]int, len(points))

	for range maxIterations {
		changed := 0
		for i, p := range points {
			nearest := nearestCentroid(p, centroids)
			if assignments[i] != nearest {
				assignments[i] = nearest
				changed++
			}
		}

		next := recalculate(points, assignments, k, rng)
		movement := 0.0
		for i := range centroids {
			movement += centroids[i].distance(next[i])
		}
		centroids = next

		if float64(changed)/float64(len(points)) < 0.01 || movement/float64(k) < convergenceStep {
			break
		}
	}

	counts := make([]float64, k)
	for _, a := range assignments {
		counts[a]++
	}

	clusters := make([]cluster, 0, k)
	for i, c := range centroids {
		if counts[i] == 0 {
			continue
		}
		clusters = append(clusters, cluster{
			r:      c.r,
			g:      c.g,
			b:      c.b,
			weight: counts[i] / float64(len(points)),
		})
	}
	return clusters
}

func seedCentroids(points []point3D, k int, rng *rand.Rand) []point3D {
	centroids := make([]point3D, 0, k)
	centroids = append(centroids, points[rng.IntN(len(points))])

	distances := make([]float64, len(points))
	for len(centroids) < k {
		total := 0.0
		for i, p := range points {
			d := p.distance(centroids[nearestCentroid(p, centroids)])
			distances[i] = d * d
			total += distances[i]
		}

		if total == 0 {
			// Every remaining point coincides with a centroid.
			last := centroids[len(centroids)-1]
			centroids = append(centroids, point3D{r: last.r + 0.1, g: last.g + 0.1, b: last.b + 0.1})
			continue
		}

		target := rng.Float64() * total
		cumulative := 0.0
		for i, d := range distances {
			cumulative += d
			if cumulative >= target {
				centroids = append(centroids, points[i])
				break
			}
		}
	}
	return centroids
}

func nearestCentroid(p point3D, centroids []point3D) int {
	best := 0
	bestDist := math.MaxFloat64
	for i, c := range centroids {
		if d := p.distance(c); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func recalculate(points []point3D, assignments []int, k int, rng *rand.Rand) []point3D {
	sums := make([]point3D, k)
	counts := make([]int, k)
	for i, p := range points {
		c := assignments[i]
		sums[c].r += p.r
		sums[c].g += p.g
		sums[c].b += p.b
		counts[c]++
	}

	centroids := make([]point3D, k)
	for i := range k {
		if counts[i] == 0 {
			centroids[i] = points[rng.IntN(len(points))]
			continue
		}
		n := float64(counts[i])
		centroids[i] = point3D{r: sums[i].r / n, g: sums[i].g / n, b: sums[i].b / n}
	}
	return centroids
}
