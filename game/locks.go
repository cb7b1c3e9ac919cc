package game

import "sync"

// locks holds every mutex in the engine. Acquisition order is
// roster, terrain, partitions in ascending id, then a single cell block.
type locks struct {
	roster  sync.RWMutex // structural changes to the ark world
	terrain sync.RWMutex // resource and occupancy layers

	parts []sync.Mutex // one per partition: member lists and agent state

	blocks       []sync.Mutex // one per blockSize x blockSize group of cells
	blockSize    int
	blocksPerRow int
}

func newLocks(partitions, width, height, blockSize int) *locks {
	if blockSize < 1 {
		blockSize = 1
	}
	perRow := (width + blockSize - 1) / blockSize
	perCol := (height + blockSize - 1) / blockSize
	return &locks{
		parts:        make([]sync.Mutex, partitions),
		blocks:       make([]sync.Mutex, perRow*perCol),
		blockSize:    blockSize,
		blocksPerRow: perRow,
	}
}

// BlockIndex returns the cell block guarding (x, y). Coordinates must be in bounds.
func (l *locks) BlockIndex(x, y int) int {
	return (y/l.blockSize)*l.blocksPerRow + x/l.blockSize
}

func (l *locks) lockBlock(x, y int) int {
	b := l.BlockIndex(x, y)
	l.blocks[b].Lock()
	return b
}

func (l *locks) unlockBlock(b int) {
	l.blocks[b].Unlock()
}

// lockPair locks two partitions in ascending id order. Equal ids lock once.
func (l *locks) lockPair(a, b int) {
	if a > b {
		a, b = b, a
	}
	l.parts[a].Lock()
	if b != a {
		l.parts[b].Lock()
	}
}

// unlockPair releases what lockPair acquired.
func (l *locks) unlockPair(a, b int) {
	if a > b {
		a, b = b, a
	}
	if b != a {
		l.parts[b].Unlock()
	}
	l.parts[a].Unlock()
}
