package paddle

import "image"

// BorderType 轮廓边界类型
type BorderType int

const (
	// BorderOuter 前景区域的外边界
	BorderOuter BorderType = iota
	// BorderHole 前景区域内部孔洞的边界
	BorderHole
)

// Contour 二值图中的一条闭合边界
type Contour struct {
	Points     []image.Point
	BorderType BorderType
	Parent     int // 父轮廓在结果中的下标, -1 表示顶层轮廓
}

// 8 邻域, 下标递增为顺时针方向 (y 轴向下)
var neighbors = [8]image.Point{
	{-1, 0},  // w
	{-1, -1}, // nw
	{0, -1},  // n
	{1, -1},  // ne
	{1, 0},   // e
	{1, 1},   // se
	{0, 1},   // s
	{-1, 1},  // sw
}

const east = 4

func direction(d image.Point) int {
	for i, n := range neighbors {
		if n == d {
			return i
		}
	}
	return 0
}

// labelGrid 四周补一圈 0 像素的标记图
type labelGrid struct {
	values []int
	stride int
}

func (g *labelGrid) at(p image.Point) *int {
	return &g.values[(p.Y+1)*g.stride+p.X+1]
}

// FindContours 对灰度图按阈值二值化 (>= threshold 为前景) 并提取全部轮廓 (Suzuki-Abe 边界跟踪).
// 轮廓按首个边界像素的光栅扫描顺序返回, 坐标与 img 的坐标系一致.
func FindContours(img *image.Gray, threshold uint8) []Contour {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	g := &labelGrid{values: make([]int, (w+2)*(h+2)), stride: w + 2}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if img.GrayAt(b.Min.X+x, b.Min.Y+y).Y >= threshold {
				*g.at(image.Pt(x, y)) = 1
			}
		}
	}

	var contours []Contour
	nbd := 1
	for y := 0; y < h; y++ {
		lnbd := 1
		for x := 0; x < w; x++ {
			p := image.Pt(x, y)
			v := *g.at(p)
			if v == 0 {
				continue
			}

			var from image.Point
			var bt BorderType
			found := true
			switch {
			case v == 1 && *g.at(image.Pt(x-1, y)) == 0:
				from, bt = image.Pt(x-1, y), BorderOuter
			case v >= 1 && *g.at(image.Pt(x+1, y)) == 0:
				if v > 1 {
					lnbd = v
				}
				from, bt = image.Pt(x+1, y), BorderHole
			default:
				found = false
			}

			if found {
				nbd++
				parent := -1
				if lnbd > 1 {
					prev := contours[lnbd-2]
					if (bt == BorderOuter) != (prev.BorderType == BorderOuter) {
						parent = lnbd - 2
					} else {
						parent = prev.Parent
					}
				}
				points := g.follow(p, from, nbd)
				for i := range points {
					points[i] = points[i].Add(b.Min)
				}
				contours = append(contours, Contour{Points: points, BorderType: bt, Parent: parent})
			}

			if v := *g.at(p); v != 1 {
				if v < 0 {
					v = -v
				}
				lnbd = v
			}
		}
	}
	return contours
}

// follow 从 start 出发跟踪一条边界, from 为起始的 0 像素邻居
func (g *labelGrid) follow(start, from image.Point, nbd int) []image.Point {
	d := direction(from.Sub(start))
	var first image.Point
	ok := false
	for i := 0; i < 8; i++ {
		q := start.Add(neighbors[(d+i)%8])
		if *g.at(q) != 0 {
			first, ok = q, true
			break
		}
	}
	if !ok {
		// 孤立像素
		*g.at(start) = -nbd
		return []image.Point{start}
	}

	var points []image.Point
	prev, cur := first, start
	for {
		points = append(points, cur)

		d = direction(prev.Sub(cur))
		var next image.Point
		eastVisited := false
		for i := 1; i <= 8; i++ {
			k := (d - i + 8) % 8
			q := cur.Add(neighbors[k])
			if *g.at(q) != 0 {
				next = q
				break
			}
			if k == east {
				eastVisited = true
			}
		}

		if eastVisited {
			*g.at(cur) = -nbd
		} else if *g.at(cur) == 1 {
			*g.at(cur) = nbd
		}

		if next == start && cur == first {
			break
		}
		prev, cur = cur, next
	}
	return points
}
