package main

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/gorilla/mux"

	"github.com/mastercactapus/zprobe/coord"
	"github.com/mastercactapus/zprobe/machine"
	"github.com/mastercactapus/zprobe/meshlevel"
)

type api struct {
	http.Handler
	m       Machine
	dataDir string
	sse     *sse.Server
}

func newAPI(m Machine, dir string) *api {
	r := mux.NewRouter()

	a := &api{
		Handler: r,
		m:       m,
		dataDir: dir,
		sse: sse.NewServer(&sse.Options{
			Logger: log.New(ioutil.Discard, "", 0),
		}),
	}

	fs := http.FileServer(http.Dir(dir))
	r.PathPrefix("/data/").Handler(http.StripPrefix("/data", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case "GET":
			fs.ServeHTTP(w, req)
		case "PUT":
			a.putFile(w, req)
		case "DELETE":
			a.deleteFile(w, req)
		default:
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	})))

	r.HandleFunc("/api/run", a.run).Methods("POST")
	r.HandleFunc("/api/probe", a.probe).Methods("POST")
	r.HandleFunc("/api/repeat", a.repeat).Methods("POST")
	r.HandleFunc("/api/level", a.level).Methods("POST")

	r.PathPrefix("/events/").Handler(a.sse)
	go func() {
		for msg := range m.HoldMessage() {
			a.sse.SendMessage("/events/hold", sse.SimpleMessage(msg))
		}
	}()
	go func() {
		for state := range m.State() {
			data, err := json.Marshal(state)
			if err != nil {
				log.Printf("ERROR: marshal json: %+v", err)
				continue
			}
			a.sse.SendMessage("/events/state", sse.SimpleMessage(string(data)))
		}
	}()

	return a
}

func safePath(base, name string) (bool, string) {
	if filepath.Separator != '/' && strings.ContainsRune(name, filepath.Separator) {
		log.Println("invalid path '" + name + "'")
		return false, ""
	}
	dir := string(base)
	if dir == "" {
		dir = "."
	}
	fullName := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+name)))
	return true, fullName
}

func (a *api) run(w http.ResponseWriter, req *http.Request) {
	data, err := ioutil.ReadAll(req.Body)
	if err != nil {
		return
	}

	parts := strings.Split(string(data), "\n")
	p := parts[:0]
	for _, str := range parts {
		str = strings.TrimSpace(str)
		if str == "" {
			continue
		}
		p = append(p, str+"\n")
	}
	err = a.m.Run(p, &sseWriter{sse: a.sse, channel: "/events/repeat"})
	if err != nil {
		log.Printf("ERROR: run: %+v", err)
		http.Error(w, err.Error(), 500)
		return
	}
}

// formParser collects float form values, remembering the first parse
// failure.
type formParser struct {
	req *http.Request
	err error
}

func (p *formParser) float(param string) (val float64) {
	if p.err != nil {
		return 0
	}
	val, p.err = strconv.ParseFloat(p.req.FormValue(param), 64)
	return val
}

func (p *formParser) floatDefault(param string, def float64) float64 {
	if p.req.FormValue(param) == "" {
		return def
	}
	return p.float(param)
}

func (a *api) probe(w http.ResponseWriter, req *http.Request) {
	ok, name := safePath(a.dataDir, "grid.json")
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	p := &formParser{req: req}

	var opt machine.ProbeOptions
	opt.ZeroZAxis = req.FormValue("zeroZAxis") == "1"
	opt.Wait = req.FormValue("wait") == "1"
	opt.FeedRate = p.float("feedRate")
	opt.MaxTravel = p.float("maxZTravel")

	grid := req.FormValue("grid") == "1"
	var gridOpt machine.ProbeGridOptions
	if grid {
		gridOpt.ProbeOptions = opt
		gridOpt.DistanceX = p.float("xDist")
		gridOpt.DistanceY = p.float("yDist")
		gridOpt.Granularity = p.floatDefault("granularity", 10)
	}

	if p.err != nil {
		http.Error(w, p.err.Error(), http.StatusBadRequest)
		return
	}

	var res interface{}
	var err error
	if grid {
		res, err = a.m.ProbeZGrid(gridOpt)
	} else {
		res, err = a.m.ProbeZ(opt)
	}

	if err != nil {
		log.Printf("ERROR: probe grid=%t: %+v", grid, err)
		http.Error(w, err.Error(), 500)
		return
	}

	out := io.Writer(w)
	if grid {
		os.MkdirAll(filepath.Dir(name), 0755)
		f, err := os.Create(name)
		if err != nil {
			log.Printf("ERROR: create '%s': %+v", name, err)
		} else {
			defer f.Close()
			out = io.MultiWriter(w, f)
		}
	}
	err = json.NewEncoder(out).Encode(res)
	if err != nil {
		log.Println("ERROR: encode:", err)
	}
}

// sseWriter forwards each written line to an SSE channel.
type sseWriter struct {
	sse     *sse.Server
	channel string
}

func (w *sseWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		w.sse.SendMessage(w.channel, sse.SimpleMessage(line))
	}
	return len(p), nil
}

func (a *api) repeat(w http.ResponseWriter, req *http.Request) {
	p := &formParser{req: req}

	var opt machine.RepeatOptions
	opt.FeedRate = p.float("feedRate")
	opt.MaxTravel = p.float("maxZTravel")
	opt.Samples = int(p.floatDefault("samples", 10))
	opt.Verbosity = int(p.floatDefault("verbosity", 1))
	if req.FormValue("x") != "" {
		x := p.float("x")
		opt.X = &x
	}
	if req.FormValue("y") != "" {
		y := p.float("y")
		opt.Y = &y
	}
	if req.FormValue("legs") != "" {
		opt.Legs = int(p.float("legs"))
		opt.LegsSet = true
	}
	opt.Stow = req.FormValue("stow") == "1"
	opt.TravelZ = p.floatDefault("travelZ", 0)
	opt.Star = req.FormValue("star") == "1"

	if p.err != nil {
		http.Error(w, p.err.Error(), http.StatusBadRequest)
		return
	}

	opt.Progress = func(n, total int) {
		a.sse.SendMessage("/events/repeat",
			sse.SimpleMessage(fmt.Sprintf(`{"point":%d,"of":%d}`, n, total)))
	}
	opt.Output = &sseWriter{sse: a.sse, channel: "/events/repeat"}

	res, err := a.m.ProbeRepeatability(opt)
	if err != nil && res == nil {
		log.Printf("ERROR: repeat: %+v", err)
		http.Error(w, err.Error(), 500)
		return
	}

	var out struct {
		*machine.RepeatResult
		Range float64
		Error string `json:",omitempty"`
	}
	out.RepeatResult = res
	out.Range = res.Range()
	if err != nil {
		out.Error = err.Error()
	}

	err = json.NewEncoder(w).Encode(out)
	if err != nil {
		log.Println("ERROR: encode:", err)
	}
}

func (a *api) level(w http.ResponseWriter, req *http.Request) {
	p := &formParser{req: req}

	var opt machine.ProbeGridOptions
	opt.FeedRate = p.float("feedRate")
	opt.MaxTravel = p.float("maxZTravel")
	opt.DistanceX = p.float("xDist")
	opt.DistanceY = p.float("yDist")
	opt.Granularity = p.floatDefault("granularity", 10)

	if p.err != nil {
		http.Error(w, p.err.Error(), http.StatusBadRequest)
		return
	}

	res, err := a.m.ProbeZGrid(opt)
	if err != nil {
		log.Printf("ERROR: level: %+v", err)
		http.Error(w, err.Error(), 500)
		return
	}

	points := make([]coord.Point, 0, len(res))
	for _, pr := range res {
		if !pr.Valid {
			continue
		}
		points = append(points, pr.Point)
	}
	if len(points) == 0 {
		http.Error(w, "no probe data returned", 500)
		return
	}

	// heights relative to the first probed point
	points = meshlevel.OffsetFrom(points[0].Z, points)

	err = a.m.SetLevelingMesh(points, opt.Granularity)
	if err != nil {
		log.Printf("ERROR: level mesh: %+v", err)
		http.Error(w, err.Error(), 500)
		return
	}

	err = json.NewEncoder(w).Encode(points)
	if err != nil {
		log.Println("ERROR: encode:", err)
	}
}

func (a *api) putFile(w http.ResponseWriter, req *http.Request) {
	ok, name := safePath(a.dataDir, req.URL.Path)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	os.MkdirAll(filepath.Dir(name), 0755)
	f, err := os.Create(name)
	if err != nil {
		log.Printf("ERROR: create '%s': %+v", name, err)
		http.Error(w, err.Error(), 500)
		return
	}
	defer f.Close()
	_, err = io.Copy(f, req.Body)
	if err != nil {
		log.Printf("ERROR: write '%s': %+v", name, err)
		http.Error(w, err.Error(), 500)
		return
	}
}
func (a *api) deleteFile(w http.ResponseWriter, req *http.Request) {
	ok, name := safePath(a.dataDir, req.URL.Path)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	err := os.Remove(name)
	if err != nil {
		log.Printf("ERROR: delete '%s': %+v", name, err)
		http.Error(w, err.Error(), 500)
		return
	}
}
