package pogreb

import "git.tcp.direct/tcp.direct/tdb/driver"

func init() {
	driver.Register(EngineName, pogrebDriver{})
}
