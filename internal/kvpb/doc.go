// Package kvpb defines the RPC surface every node exposes.
//
// The service "kv.Node" has four unary methods: Get, Set, List and
// RegisterWithPeer. Messages are plain Go structs carried by a gRPC codec
// registered under the content subtype "json"; NodeClient selects that
// codec on every call, and the server picks it from the request's content
// type.
package kvpb
