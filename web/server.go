package web

import (
	"log"
	"net/http"
	"os"
	"path"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/mogaika/wow_model_browser/config"
	"github.com/mogaika/wow_model_browser/vfs"
)

var (
	ServerSource vfs.BlobSource
	// OutputDirectory receives uploaded exports, empty disables uploads
	OutputDirectory string
	ServerOptions   = config.Options{
		Export: config.DefaultExportOptions(),
		Import: config.DefaultImportOptions(),
	}
)

func NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/json/pack", HandlerAjaxPack)
	r.HandleFunc("/json/pack/{file:.+}", HandlerAjaxPackFile)
	r.HandleFunc("/json/diagnostics/{file:.+}", HandlerAjaxDiagnostics)
	r.HandleFunc("/dump/pack/{file:.+}", HandlerDumpPackFile)
	r.HandleFunc("/gltf/pack/{file:.+}", HandlerGltfPackFile)
	r.HandleFunc("/texture/pack/{file:.+}", HandlerTexturePackFile)
	r.HandleFunc("/upload/pack/{file:.+}", HandlerUploadPackFile).Methods("POST")
	r.HandleFunc("/ws/status", HandlerStatusWebsocket)
	return r
}

func StartServer(addr string, src vfs.BlobSource, webPath string) error {
	ServerSource = src

	r := NewRouter()
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(path.Join(webPath, "data"))))

	h := handlers.RecoveryHandler()(r)
	h = handlers.LoggingHandler(os.Stdout, h)
	h = handlers.CompressHandler(h)

	log.Printf("[web] Starting server %v", addr)

	return http.ListenAndServe(addr, h)
}
