package web

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/mogaika/wow_model_browser/pipeline"
	"github.com/mogaika/wow_model_browser/scene"
	"github.com/mogaika/wow_model_browser/scene/gltfscene"
	"github.com/mogaika/wow_model_browser/status"
	"github.com/mogaika/wow_model_browser/texture"
	"github.com/mogaika/wow_model_browser/validate"
	"github.com/mogaika/wow_model_browser/vfs"
	"github.com/mogaika/wow_model_browser/webutils"
	"github.com/mogaika/wow_model_browser/wmo"
)

var groupFileRe = regexp.MustCompile(`_\d{3}\.wmo$`)

type modelResponse struct {
	Model       *scene.ModelIR   `json:"model"`
	Diagnostics []validate.Entry `json:"diagnostics"`
}

type wmoResponse struct {
	WMO         *wmo.Source      `json:"wmo"`
	Diagnostics []validate.Entry `json:"diagnostics"`
}

type diagnosticsResponse struct {
	Summary     string           `json:"summary"`
	Diagnostics []validate.Entry `json:"diagnostics"`
}

func ext(file string) string {
	return strings.ToLower(path.Ext(file))
}

// load decodes a model or a world object root.
func load(file string) (interface{}, *validate.Diagnostics, error) {
	opts := ServerOptions.Import
	switch {
	case ext(file) == ".m2":
		ir, diag, err := pipeline.ImportM2(ServerSource, file, nil, opts, nil)
		return ir, diag, err
	case groupFileRe.MatchString(strings.ToLower(file)):
		return nil, nil, validate.Policyf("%s is a group file, open its root", file)
	case ext(file) == ".wmo":
		src, diag, err := pipeline.ImportWMO(ServerSource, file, nil, opts, nil)
		return src, diag, err
	}
	return nil, nil, validate.Policyf("%s is neither a model nor a world object", file)
}

func HandlerAjaxPack(w http.ResponseWriter, r *http.Request) {
	lister, ok := ServerSource.(vfs.Lister)
	if !ok {
		webutils.WriteError(w, errors.New("source cannot list files"))
		return
	}
	files, err := lister.List()
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	if filter := r.URL.Query().Get("ext"); filter != "" {
		filtered := files[:0]
		for _, f := range files {
			if ext(f) == "."+strings.ToLower(filter) {
				filtered = append(filtered, f)
			}
		}
		files = filtered
	}
	sort.Strings(files)
	webutils.WriteJson(w, files)
}

func HandlerAjaxPackFile(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	data, diag, err := load(file)
	if err != nil {
		log.Printf("Error loading %s: %v", file, err)
		webutils.WriteError(w, err)
		return
	}
	switch v := data.(type) {
	case *scene.ModelIR:
		webutils.WriteJson(w, &modelResponse{Model: v, Diagnostics: diag.Entries})
	case *wmo.Source:
		webutils.WriteJson(w, &wmoResponse{WMO: v, Diagnostics: diag.Entries})
	}
}

func HandlerAjaxDiagnostics(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	_, diag, err := load(file)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteJson(w, &diagnosticsResponse{Summary: diag.Summary(), Diagnostics: diag.Entries})
}

func HandlerDumpPackFile(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	data, err := ServerSource.Read(file)
	if err != nil {
		webutils.WriteError(w, validate.IO(file, err))
		return
	}
	webutils.WriteFile(w, bytes.NewReader(data), path.Base(file))
}

func HandlerGltfPackFile(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	if ext(file) != ".m2" {
		webutils.WriteError(w, validate.Policyf("%s is not a model", file))
		return
	}
	opts := ServerOptions.Import
	opts.FillTextures = r.URL.Query().Get("textures") != "0"

	adapter := gltfscene.New()
	if _, _, err := pipeline.ImportM2(ServerSource, file, adapter, opts, nil); err != nil {
		webutils.WriteError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := adapter.WriteBinary(&buf); err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteFileHeaders(w, strings.TrimSuffix(path.Base(file), path.Ext(file))+".glb", "model/gltf-binary")
	webutils.WriteResult(w, buf.Bytes())
}

func HandlerTexturePackFile(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	pic, err := texture.Shared().Resolve(ServerSource, file)
	if err != nil {
		webutils.WriteError(w, validate.IO(file, err))
		return
	}
	enc := texture.WebPEncoder{}
	data, err := enc.Encode(pic.Width, pic.Height, pic.RGBA)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteImage(w, data, enc.MimeType())
}

// HandlerUploadPackFile exports a posted glTF document as a model under OutputDirectory.
func HandlerUploadPackFile(w http.ResponseWriter, r *http.Request) {
	targetFile := mux.Vars(r)["file"]
	if OutputDirectory == "" {
		webutils.WriteError(w, validate.Policyf("uploads are disabled"))
		return
	}
	if ext(targetFile) != ".m2" {
		webutils.WriteError(w, validate.Policyf("%s is not a model path", targetFile))
		return
	}
	data, err := webutils.ReadFormFile(r, "data")
	if err != nil {
		webutils.WriteError(w, validate.Policy(targetFile, err))
		return
	}
	adapter, err := gltfscene.Open(bytes.NewReader(data))
	if err != nil {
		webutils.WriteError(w, validate.Format(targetFile, err))
		return
	}

	outPath := filepath.Join(OutputDirectory, filepath.FromSlash(path.Clean("/"+targetFile)))
	e := &pipeline.Exporter{Progress: &status.Reporter{
		Job:    targetFile,
		Stages: []string{"scene", "geometry", "serialize", "write"},
	}}
	diag, err := e.ExportM2FromScene(adapter, nil, outPath, ServerOptions.Export)
	if err != nil {
		status.Error("%s: %v", targetFile, err)
		webutils.WriteError(w, err)
		return
	}
	status.Info("%s: %s", targetFile, diag.Summary())
	log.Printf("[web] exported %s: %s", outPath, diag.Summary())
	webutils.WriteJson(w, &diagnosticsResponse{
		Summary:     fmt.Sprintf("%s: %s", targetFile, diag.Summary()),
		Diagnostics: diag.Entries,
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func HandlerStatusWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[web] ws upgrade error: %v", err)
		return
	}
	status.NewClient(conn)
}
