package camera

import "fmt"

// Heap is a fixed-size memory block shared with the client for zero-copy
// frame delivery. The preview loop writes each new frame over the previous
// one, so a client holding a Buffer from an earlier frame will observe the
// region change underneath it.
type Heap struct {
	data []byte
}

func NewHeap(size int) *Heap {
	return &Heap{data: make([]byte, size)}
}

func (h *Heap) Size() int {
	return len(h.data)
}

func (h *Heap) Bytes() []byte {
	return h.data
}

// Buffer is a window into a Heap, handed to the client on every delivered
// frame.
type Buffer struct {
	heap   *Heap
	offset int
	size   int
}

func (h *Heap) Buffer(offset, size int) *Buffer {
	if offset < 0 || size < 0 || offset+size > len(h.data) {
		panic(fmt.Sprintf("camera: buffer [%d:%d] outside heap of %d bytes", offset, offset+size, len(h.data)))
	}
	return &Buffer{heap: h, offset: offset, size: size}
}

func (b *Buffer) Heap() *Heap {
	return b.heap
}

func (b *Buffer) Size() int {
	return b.size
}

func (b *Buffer) Bytes() []byte {
	return b.heap.data[b.offset : b.offset+b.size]
}
