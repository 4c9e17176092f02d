// Command testserver is a minimal OPC UA server exposing a handful of
// scalar variable nodes, so the gateway and the scenarios spec.md §8
// describes have something real to connect to, read, and browse when run
// by hand (no test in this module starts it) — the Go equivalent of the
// prototype's
// examples/dummy_opcua_server.rs.
package main

import (
	"flag"
	"log"
	"math/rand"
	"time"

	"github.com/gopcua/opcua/server"
	"github.com/gopcua/opcua/ua"
)

const namespaceURI = "http://forgeio/dummy/"

func main() {
	endpoint := flag.String("endpoint", "opc.tcp://0.0.0.0:4840", "listen endpoint")
	flag.Parse()

	srv := server.New(*endpoint)
	defer srv.Close()

	ns := server.NewNodeNameSpace(srv, namespaceURI)
	srv.AddNamespace(ns)
	nsIndex := ns.ID()

	temperature := ns.AddNewVariableNode(ua.NewStringNodeID(nsIndex, "Temperature"), "Temperature", 20.0)
	pressure := ns.AddNewVariableNode(ua.NewStringNodeID(nsIndex, "Pressure"), "Pressure", 1.0)
	counter := ns.AddNewVariableNode(ua.NewStringNodeID(nsIndex, "Counter"), "Counter", int32(0))
	ns.AddNewObjectNode(ua.NewStringNodeID(nsIndex, "Dummy"), "Dummy", []*server.Node{temperature, pressure, counter})

	if err := srv.Start(); err != nil {
		log.Fatalf("testserver: failed to start: %v", err)
	}

	log.Printf("testserver: listening on %s", *endpoint)
	tickCounter(counter)
}

// tickCounter increments the Counter node once a second so a polling
// gateway can observe a value that actually changes, rather than a static
// fixture.
func tickCounter(counter *server.Node) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var n int32
	for range ticker.C {
		n++
		counter.SetValue(ua.MustVariant(n + int32(rand.Intn(1))))
	}
}
