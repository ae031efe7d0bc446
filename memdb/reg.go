package memdb

import "git.tcp.direct/tcp.direct/tdb/driver"

func init() {
	driver.Register(EngineName, memDriver{})
}
