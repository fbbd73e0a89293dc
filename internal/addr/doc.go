// Package addr parses and validates node addresses.
//
// A node is identified only by its address, an IPv4 host plus a TCP port
// written as "host:port". Two addresses that render to the same string are
// the same node.
//
//	a, err := addr.Parse("127.0.0.1:4000")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(a) // 127.0.0.1:4000
package addr
