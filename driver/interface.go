package driver

// Driver is the capability set every PLC adapter implements, narrowed to
// exactly what the Poller needs per §4.2: connect/disconnect, a batched
// read, a single-address write, and a connection probe. Tag discovery and
// device identification, which the broader protocol clients under logix/
// still expose, are deliberately not part of this contract — this gateway
// addresses tags by fixed, externally-configured address strings only.
type Driver interface {
	// Connect is idempotent. The SLC500 adapter dials with a fixed 5-second
	// timeout and the CompactLogix adapter with the EtherNet/IP client's
	// 5-second default; PLCConfig.SocketTimeout is not passed to either. It
	// returns a non-nil error on any I/O or protocol fault.
	Connect() error

	// Disconnect is idempotent and always succeeds.
	Disconnect() error

	// Read performs a batched read of addresses. Per-address failures are
	// reported in the corresponding ReadResult.Err; an overall I/O failure
	// returns a non-nil error and the caller must treat the connection as
	// broken.
	Read(addresses []string) ([]ReadResult, error)

	// Write sets a single address to value.
	Write(address string, value interface{}) error

	IsConnected() bool
}
