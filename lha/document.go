package lha

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Document owns the blocks and decays of one LHA file. Blocks and decays
// are kept in two independent insertion-ordered maps.
//
// The zero value is an empty document ready to use. A Document is not
// safe for concurrent mutation; concurrent readers are fine while no
// writer is active.
type Document struct {
	blocks     []*Block
	blockIndex map[string]int

	decays     []*Decay
	decayIndex map[int64]int
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{
		blockIndex: make(map[string]int),
		decayIndex: make(map[int64]int),
	}
}

// Block returns the block with the given title.
func (d *Document) Block(title string) (*Block, error) {
	if i, ok := d.blockIndex[title]; ok {
		return d.blocks[i], nil
	}
	return nil, &NotFoundError{What: "block", Key: title}
}

// Decay returns the decay table of the given particle.
func (d *Document) Decay(pdgid int64) (*Decay, error) {
	if i, ok := d.decayIndex[pdgid]; ok {
		return d.decays[i], nil
	}
	return nil, &NotFoundError{What: "decay", Key: "PDG " + strconv.FormatInt(pdgid, 10)}
}

// AddBlock inserts b, replacing any block with the same title. A replaced
// block keeps its position in the output order; its entries are dropped.
func (d *Document) AddBlock(b *Block) error {
	if err := b.validate(); err != nil {
		return err
	}
	d.putBlock(b)
	return nil
}

func (d *Document) putBlock(b *Block) {
	if i, ok := d.blockIndex[b.title]; ok {
		d.blocks[i] = b
		return
	}
	if d.blockIndex == nil {
		d.blockIndex = make(map[string]int)
	}
	d.blockIndex[b.title] = len(d.blocks)
	d.blocks = append(d.blocks, b)
}

// AddDecay inserts dec, replacing any decay with the same pdgid. A
// replaced decay keeps its position in the output order.
func (d *Document) AddDecay(dec *Decay) {
	if i, ok := d.decayIndex[dec.pdgid]; ok {
		d.decays[i] = dec
		return
	}
	if d.decayIndex == nil {
		d.decayIndex = make(map[int64]int)
	}
	d.decayIndex[dec.pdgid] = len(d.decays)
	d.decays = append(d.decays, dec)
}

// RemoveBlock deletes a block. It returns false if no such block exists.
func (d *Document) RemoveBlock(title string) bool {
	i, ok := d.blockIndex[title]
	if !ok {
		return false
	}
	d.blocks = append(d.blocks[:i], d.blocks[i+1:]...)
	delete(d.blockIndex, title)
	for j := i; j < len(d.blocks); j++ {
		d.blockIndex[d.blocks[j].title] = j
	}
	return true
}

// RemoveDecay deletes a decay. It returns false if no such decay exists.
func (d *Document) RemoveDecay(pdgid int64) bool {
	i, ok := d.decayIndex[pdgid]
	if !ok {
		return false
	}
	d.decays = append(d.decays[:i], d.decays[i+1:]...)
	delete(d.decayIndex, pdgid)
	for j := i; j < len(d.decays); j++ {
		d.decayIndex[d.decays[j].pdgid] = j
	}
	return true
}

// Blocks returns the blocks in insertion order.
func (d *Document) Blocks() []*Block {
	return append([]*Block(nil), d.blocks...)
}

// Decays returns the decays in insertion order.
func (d *Document) Decays() []*Decay {
	return append([]*Decay(nil), d.decays...)
}

// Fingerprint returns a 64-bit hash of the serialized document. Two
// documents with the same fingerprint write the same text.
func (d *Document) Fingerprint() uint64 {
	h := xxhash.New()
	for _, line := range Emit(d) {
		h.WriteString(line)
		h.WriteString("\n")
	}
	return h.Sum64()
}
