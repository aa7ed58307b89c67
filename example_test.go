package imtool_test

import (
	"context"
	"fmt"

	"github.com/shamspias/imtool"
)

func ExampleProcess() {
	req := imtool.Request{
		Operation: imtool.OpResize,
		Input:     "photo.ppm",
		Output:    "thumb.ppm",
		Args:      []int{160, 120},
	}
	result, err := imtool.Process(context.Background(), req, imtool.DefaultOptions())
	if err != nil {
		panic(err)
	}
	fmt.Println(result)
}

func ExampleCutFreq() {
	b, _ := imtool.NewBuffer(2, 2, 255)
	_ = b.SetPixel(0, 0, imtool.Pixel{Red: 10, Green: 10, Blue: 10})
	_ = b.SetPixel(1, 0, imtool.Pixel{Red: 10, Green: 10, Blue: 10})
	_ = b.SetPixel(1, 1, imtool.Pixel{Red: 20, Green: 20, Blue: 20})

	imtool.CutFreq(b, 1)
	for _, p := range b.Pixels() {
		fmt.Println(p)
	}
	// Output:
	// (10,10,10)
	// (10,10,10)
	// (10,10,10)
	// (20,20,20)
}

func ExampleRescale() {
	b, _ := imtool.NewBuffer(1, 1, 255)
	_ = b.SetPixel(0, 0, imtool.Pixel{Red: 255, Green: 128, Blue: 1})

	_ = imtool.Rescale(b, 65535)
	p, _ := b.Pixel(0, 0)
	fmt.Println(b, p)
	// Output: 1x1 maxval=65535 (65535,32896,257)
}

func ExampleCompressBytes() {
	b, _ := imtool.NewBuffer(3, 1, 255)
	_ = b.SetPixel(0, 0, imtool.Pixel{Red: 7})
	_ = b.SetPixel(2, 0, imtool.Pixel{Red: 7})

	data, _ := imtool.CompressBytes(b)
	fmt.Printf("%q\n", data)
	// Output: "C6 3 1 255 2\n\a\x00\x00\x00\x00\x00\x00\x01\x00"
}

func ExampleProcessBatch() {
	reqs := []imtool.Request{
		{Operation: imtool.OpMaxLevel, Input: "a.ppm", Output: "a16.ppm", Args: []int{65535}},
		{Operation: imtool.OpCompress, Input: "b.ppm", Output: "b.cppm.zst"},
	}
	results := imtool.ProcessBatch(context.Background(), reqs, imtool.BatchOptions{Workers: 2})
	fmt.Println(imtool.Summarize(results))
}
