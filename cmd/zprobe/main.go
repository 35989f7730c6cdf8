package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/tarm/serial"

	"github.com/mastercactapus/zprobe/coord"
	"github.com/mastercactapus/zprobe/machine"
	"github.com/mastercactapus/zprobe/machine/grbl"
	"github.com/mastercactapus/zprobe/spjs"
)

func main() {
	log.SetFlags(log.Lshortfile)

	port := flag.String("port", "/dev/ttyUSB0", "Port path (or name if using SPJS).")
	baud := flag.Int("baud", 115200, "Baud rate for direct serial connections.")
	spjsURL := flag.String("spjs", "", "Websocket URL of a SPJS server to use instead of direct serial.")
	addr := flag.String("addr", ":9091", "Address to bind the zprobe server to.")
	dir := flag.String("dir", "./data", "Data directory to use.")

	bedX := flag.Float64("bed-x", 200, "Bed width in mm (rectangular machines).")
	bedY := flag.Float64("bed-y", 200, "Bed depth in mm (rectangular machines).")
	probeRadius := flag.Float64("probe-radius", 0, "Probe-reachable radius in mm; set for delta-style machines.")
	offsetX := flag.Float64("probe-offset-x", 0, "Probe X offset from the tool position.")
	offsetY := flag.Float64("probe-offset-y", 0, "Probe Y offset from the tool position.")
	probeFeed := flag.Float64("probe-feed", 50, "Feed rate in mm/min for probe cycles started by command blocks.")
	probeTravel := flag.Float64("probe-travel", -20, "Max probe travel in mm (negative, toward the bed) for probe cycles started by command blocks.")
	flag.Parse()

	var adapter machine.Adapter
	if *spjsURL != "" {
		sp := spjs.NewSPJS(*spjsURL)
		adapter = grbl.NewSPJSAdapter(sp, *port)
	} else {
		conn, err := serial.OpenPort(&serial.Config{Name: *port, Baud: *baud})
		if err != nil {
			log.Fatal(err)
		}
		adapter = grbl.NewSerialAdapter(conn)
	}

	var geo machine.Geometry
	if *probeRadius > 0 {
		geo = machine.Radial{ProbeRadius: *probeRadius}
	} else {
		geo = machine.Rectangular{MaxX: *bedX, MaxY: *bedY}
	}

	m := machine.NewMachine(adapter, geo)
	m.ProbeOffset = coord.Point{X: *offsetX, Y: *offsetY}
	m.ProbeDefaults = machine.ProbeOptions{FeedRate: *probeFeed, MaxTravel: *probeTravel}

	api := newAPI(m, *dir)

	err := http.ListenAndServe(*addr, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		log.Printf("%s %s - %s", req.Method, req.URL.Path, req.RemoteAddr)
		api.ServeHTTP(w, req)
	}))
	if err != nil {
		log.Fatal(err)
	}
}
