// Package transport implements Component H: a reliable datagram transport
// over UDP with chunking, ACK-based retransmission, and per-peer message
// reassembly (§4.H).
//
// Non-goals: congestion control, ordering across independent messages,
// flow control beyond a fixed retry count.
package transport

import (
	"crypto/rand"
	"encoding/binary"
	"net"
	"sync"
	"time"

	"github.com/luxfi/qsp/pkg/apperr"
)

const (
	mtu            = 1024
	maxChunkPayload = 1011 // mtu - headerSize, so a full DAT packet fits the receive buffer
	headerSize      = 13 // type(1) + msg_id(4) + chunk_idx(4) + total_chunks(4)

	ackTimeout  = 500 * time.Millisecond
	maxRetries  = 10
	dedupWindow = 60 * time.Second

	punchBeaconCount    = 5
	punchBeaconInterval = 100 * time.Millisecond
)

type packetType byte

const (
	packetDAT   packetType = 'D'
	packetACK   packetType = 'A'
	packetPUNCH packetType = 'P'
)

// Inbound is one fully reassembled message delivered to a Recv caller.
type Inbound struct {
	Data []byte
	Peer *net.UDPAddr
}

// Transport is a single UDP socket shared by all peers. One receiver
// goroutine demultiplexes inbound packets by peer address into per-peer
// reassembly state (§5 concurrency model); Send blocks the caller until
// every chunk of its message has been ACKed or retries are exhausted.
type Transport struct {
	conn *net.UDPConn

	mtx       sync.Mutex
	inflight  map[inflightKey]chan struct{} // msg_id+chunk_idx -> ack signal, keyed per destination
	reassembly map[reassemblyKey]*reassemblyState

	recvCh chan Inbound
	done   chan struct{}
}

type inflightKey struct {
	addr     string
	msgID    uint32
	chunkIdx uint32
}

type reassemblyKey struct {
	addr  string
	msgID uint32
}

type reassemblyState struct {
	total   uint32
	chunks  map[uint32][]byte
	lastSeen time.Time
}

// Listen opens a UDP socket at addr and starts the background receiver.
func Listen(addr string) (*Transport, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, apperr.Wrap("transport.Listen", apperr.TransportPeerLost, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, apperr.Wrap("transport.Listen", apperr.TransportPeerLost, err)
	}
	t := &Transport{
		conn:       conn,
		inflight:   make(map[inflightKey]chan struct{}),
		reassembly: make(map[reassemblyKey]*reassemblyState),
		recvCh:     make(chan Inbound, 64),
		done:       make(chan struct{}),
	}
	go t.receiveLoop()
	return t, nil
}

// LocalAddr returns the bound UDP address.
func (t *Transport) LocalAddr() *net.UDPAddr {
	return t.conn.LocalAddr().(*net.UDPAddr)
}

// Close stops the receiver and releases the socket.
func (t *Transport) Close() error {
	close(t.done)
	return t.conn.Close()
}

// Recv blocks until the next fully reassembled message arrives.
func (t *Transport) Recv() (Inbound, error) {
	msg, ok := <-t.recvCh
	if !ok {
		return Inbound{}, apperr.New("transport.Recv", apperr.TransportPeerLost)
	}
	return msg, nil
}

// Send chunks data into payloads of at most maxChunkPayload bytes and
// blocks until every chunk has been ACKed by peer, retransmitting at
// ackTimeout intervals up to maxRetries times per chunk. Concurrent Sends
// to different peers are safe; Send may be called from multiple goroutines.
func (t *Transport) Send(data []byte, peer *net.UDPAddr) error {
	var msgIDBytes [4]byte
	if _, err := rand.Read(msgIDBytes[:]); err != nil {
		return apperr.Wrap("transport.Send", apperr.TransportEncode, err)
	}
	msgID := binary.BigEndian.Uint32(msgIDBytes[:])

	chunks := chunkPayload(data)
	total := uint32(len(chunks))

	for idx, payload := range chunks {
		if err := t.sendChunkReliable(msgID, uint32(idx), total, payload, peer); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transport) sendChunkReliable(msgID, idx, total uint32, payload []byte, peer *net.UDPAddr) error {
	key := inflightKey{addr: peer.String(), msgID: msgID, chunkIdx: idx}
	ackCh := make(chan struct{}, 1)

	t.mtx.Lock()
	t.inflight[key] = ackCh
	t.mtx.Unlock()
	defer func() {
		t.mtx.Lock()
		delete(t.inflight, key)
		t.mtx.Unlock()
	}()

	packet := encodeDAT(msgID, idx, total, payload)
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if _, err := t.conn.WriteToUDP(packet, peer); err != nil {
			return apperr.Wrap("transport.Send", apperr.TransportPeerLost, err)
		}
		select {
		case <-ackCh:
			return nil
		case <-time.After(ackTimeout):
			continue
		}
	}
	return apperr.New("transport.Send", apperr.TransportPeerLost)
}

// Punch sends punchBeaconCount PUNCH beacons at punchBeaconInterval spacing
// toward peer, for NAT hole-punching by an external caller; PUNCH packets
// carry no payload and are silently dropped by receiveLoop.
func (t *Transport) Punch(peer *net.UDPAddr) error {
	packet := []byte{byte(packetPUNCH)}
	for i := 0; i < punchBeaconCount; i++ {
		if _, err := t.conn.WriteToUDP(packet, peer); err != nil {
			return apperr.Wrap("transport.Punch", apperr.TransportPeerLost, err)
		}
		if i != punchBeaconCount-1 {
			time.Sleep(punchBeaconInterval)
		}
	}
	return nil
}

func (t *Transport) receiveLoop() {
	buf := make([]byte, mtu)
	for {
		select {
		case <-t.done:
			return
		default:
		}
		n, addr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-t.done:
				return
			default:
				continue
			}
		}
		t.handlePacket(buf[:n], addr)
	}
}

func (t *Transport) handlePacket(packet []byte, addr *net.UDPAddr) {
	if len(packet) == 0 {
		return
	}
	switch packetType(packet[0]) {
	case packetPUNCH:
		return
	case packetACK:
		t.handleACK(packet, addr)
	case packetDAT:
		t.handleDAT(packet, addr)
	}
}

func (t *Transport) handleACK(packet []byte, addr *net.UDPAddr) {
	msgID, chunkIdx, ok := decodeACK(packet)
	if !ok {
		return
	}
	key := inflightKey{addr: addr.String(), msgID: msgID, chunkIdx: chunkIdx}
	t.mtx.Lock()
	ch, found := t.inflight[key]
	t.mtx.Unlock()
	if found {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (t *Transport) handleDAT(packet []byte, addr *net.UDPAddr) {
	msgID, chunkIdx, total, payload, ok := decodeDAT(packet)
	if !ok {
		return
	}

	ackPacket := encodeACK(msgID, chunkIdx)
	_, _ = t.conn.WriteToUDP(ackPacket, addr)

	rkey := reassemblyKey{addr: addr.String(), msgID: msgID}

	t.mtx.Lock()
	state, exists := t.reassembly[rkey]
	if !exists {
		state = &reassemblyState{total: total, chunks: make(map[uint32][]byte)}
		t.reassembly[rkey] = state
	}
	if _, dup := state.chunks[chunkIdx]; dup {
		t.mtx.Unlock()
		return // duplicate within dedup window, already ACKed above
	}
	state.chunks[chunkIdx] = payload
	state.lastSeen = time.Now()
	complete := uint32(len(state.chunks)) == state.total
	if complete {
		delete(t.reassembly, rkey)
	}
	t.mtx.Unlock()

	if !complete {
		return
	}

	full := make([]byte, 0, int(total)*maxChunkPayload)
	for i := uint32(0); i < total; i++ {
		full = append(full, state.chunks[i]...)
	}

	select {
	case t.recvCh <- Inbound{Data: full, Peer: addr}:
	case <-t.done:
	}
}

func chunkPayload(data []byte) [][]byte {
	if len(data) == 0 {
		return [][]byte{{}}
	}
	var chunks [][]byte
	for offset := 0; offset < len(data); offset += maxChunkPayload {
		end := offset + maxChunkPayload
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[offset:end])
	}
	return chunks
}

func encodeDAT(msgID, chunkIdx, total uint32, payload []byte) []byte {
	out := make([]byte, headerSize+len(payload))
	out[0] = byte(packetDAT)
	binary.BigEndian.PutUint32(out[1:5], msgID)
	binary.BigEndian.PutUint32(out[5:9], chunkIdx)
	binary.BigEndian.PutUint32(out[9:13], total)
	copy(out[headerSize:], payload)
	return out
}

func decodeDAT(packet []byte) (msgID, chunkIdx, total uint32, payload []byte, ok bool) {
	if len(packet) < headerSize {
		return 0, 0, 0, nil, false
	}
	msgID = binary.BigEndian.Uint32(packet[1:5])
	chunkIdx = binary.BigEndian.Uint32(packet[5:9])
	total = binary.BigEndian.Uint32(packet[9:13])
	payload = append([]byte(nil), packet[headerSize:]...)
	return msgID, chunkIdx, total, payload, true
}

func encodeACK(msgID, chunkIdx uint32) []byte {
	out := make([]byte, 9)
	out[0] = byte(packetACK)
	binary.BigEndian.PutUint32(out[1:5], msgID)
	binary.BigEndian.PutUint32(out[5:9], chunkIdx)
	return out
}

func decodeACK(packet []byte) (msgID, chunkIdx uint32, ok bool) {
	if len(packet) < 9 {
		return 0, 0, false
	}
	return binary.BigEndian.Uint32(packet[1:5]), binary.BigEndian.Uint32(packet[5:9]), true
}
