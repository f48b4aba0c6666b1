package report

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/souschef/internal/service"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// previewScale 预览图每 pt 的像素数
const previewScale = 2

var (
	previewInk    = color.RGBA{0x22, 0x22, 0x22, 0xff}
	previewBorder = color.RGBA{0xbb, 0xbb, 0xbb, 0xff}
)

// MealLabelsPNG 渲染第 page 页（从 0 开始）标签的预览图，版式与 PDF 一致
func MealLabelsPNG(labels []service.MealLabel, page int) ([]byte, error) {
	if page < 0 || page >= LabelPages(len(labels)) {
		return nil, fmt.Errorf("label page %d out of range", page)
	}

	img := image.NewRGBA(image.Rect(0, 0, sheetWidth*previewScale, sheetHeight*previewScale))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	start := page * labelsPerSheet
	end := min(start+labelsPerSheet, len(labels))
	for i := start; i < end; i++ {
		x, y := LabelOrigin(i)
		drawLabelPreview(img, int(x*previewScale), int(y*previewScale), labels[i])
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawLabelPreview(img *image.RGBA, x, y int, label service.MealLabel) {
	lw, lh := labelWidth*previewScale, labelHeight*previewScale
	w, h := int(lw), int(lh)
	strokeRect(img, image.Rect(x, y, x+w, y+h), previewBorder)

	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(previewInk), Face: face}
	pad := int(labelPadding * previewScale)
	lineStep := face.Metrics().Height.Ceil() + 2
	baseline := y + pad + face.Metrics().Ascent.Ceil()
	bottom := y + h - pad

	write := func(text string) {
		if baseline > bottom-lineStep {
			return
		}
		d.Dot = fixed.P(x+pad, baseline)
		d.DrawString(text)
		baseline += lineStep
	}

	head := label.MainDishName
	if label.Size != "" {
		head += "  [" + label.Size + "]"
	}
	write(head)
	for _, lines := range [][]string{
		label.Sides, joinPrefix(label.SidesClashes), joinPrefix(label.Preparations),
		label.DishClashes, label.OtherRestrictions, label.Ingredients,
	} {
		for _, line := range lines {
			write(line)
		}
	}

	d.Dot = fixed.P(x+pad, bottom)
	d.DrawString(label.Name + "   " + label.Route + "   " + label.Date)
}

// joinPrefix 把单独成行的前缀与第一行内容合并
func joinPrefix(lines []string) []string {
	if len(lines) < 2 {
		return lines
	}
	return append([]string{lines[0] + lines[1]}, lines[2:]...)
}

func strokeRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		img.Set(r.Max.X-1, y, c)
	}
}
