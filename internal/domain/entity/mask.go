package entity

// Mask бинарная маска сегментации того же разрешения, что и изображение
type Mask struct {
	Width  int
	Height int
	Bits   []bool // построчно, len = Width*Height
}

// NewMask создаёт пустую маску заданного размера
func NewMask(width, height int) Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return Mask{Width: width, Height: height, Bits: make([]bool, width*height)}
}

// At возвращает значение пикселя, вне границ false
func (m Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	i := y*m.Width + x
	if i >= len(m.Bits) {
		return false
	}
	return m.Bits[i]
}

// Set выставляет пиксель маски
func (m Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Bits[y*m.Width+x] = v
}

// Count число пикселей переднего плана
func (m Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Empty маска без размеров или без единого пикселя переднего плана
func (m Mask) Empty() bool {
	if m.Width == 0 || m.Height == 0 {
		return true
	}
	return m.Count() == 0
}

// Segmentation результат сегментации по одной точке
type Segmentation struct {
	Mask       Mask
	Confidence float64
}
