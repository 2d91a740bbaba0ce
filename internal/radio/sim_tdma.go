package radio

import "sync"

// SimTdmaClient is a queued-transmit TdmaClient backed by a SimRadio: Tx
// enqueues, Flush sends everything queued in one go (as a TDMA radio would
// at its allotted slot), Empty/Status report queue occupancy.
type SimTdmaClient struct {
	radio *SimRadio
	mu    sync.Mutex
	table []byte
	queue [][]byte
}

// NewSimTdmaClient wraps radio with TDMA-style queued transmission.
func NewSimTdmaClient(radio *SimRadio) *SimTdmaClient {
	return &SimTdmaClient{radio: radio}
}

func (c *SimTdmaClient) Init() error {
	return c.radio.Init()
}

func (c *SimTdmaClient) SetTable(table []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table = append([]byte(nil), table...)
	return nil
}

func (c *SimTdmaClient) GetTable() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.table...), nil
}

func (c *SimTdmaClient) Tx(buf []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, append([]byte(nil), buf...))
	return nil
}

func (c *SimTdmaClient) Flush() error {
	c.mu.Lock()
	pending := c.queue
	c.queue = nil
	c.mu.Unlock()

	for _, buf := range pending {
		if err := c.radio.Tx(buf); err != nil {
			return err
		}
	}
	return nil
}

func (c *SimTdmaClient) Empty() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue) == 0, nil
}

// Status reports 0 when idle (queue empty) and 1 when frames are pending.
func (c *SimTdmaClient) Status() (uint8, error) {
	empty, _ := c.Empty()
	if empty {
		return 0, nil
	}
	return 1, nil
}

func (c *SimTdmaClient) Recv() <-chan Frame {
	return c.radio.Recv()
}
