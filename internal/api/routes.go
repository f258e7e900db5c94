package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ferux/homewatch/internal/model"
)

func (api *HTTP) setupRoutes(info model.ApplicationInfo) {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(api.handleNotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(api.handleMethodNotAllowed)

	admin := middlewareBasicAuth(api.adminPassword)

	// api/v1 base path handlers
	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.Use(middlewareCounter(api), middlewareRequestID(), middlewareLogger(api.logger))
	v1.HandleFunc("/info", api.handleInfo(info)).Methods(http.MethodGet)
	v1.HandleFunc("/devices", api.handleListDevices()).Methods(http.MethodGet)
	v1.Handle("/devices", admin(api.handleCreateDevice())).Methods(http.MethodPost)
	v1.HandleFunc("/devices/{id:[0-9]+}", api.handleGetDevice()).Methods(http.MethodGet)
	v1.Handle("/devices/{id:[0-9]+}", admin(api.handleUpdateDevice())).Methods(http.MethodPatch)
	v1.Handle("/devices/{id:[0-9]+}", admin(api.handleDeleteDevice())).Methods(http.MethodDelete)
	v1.HandleFunc("/devices/{id:[0-9]+}/history", api.handleGetHistory()).Methods(http.MethodGet)
	v1.Handle("/devices/{id:[0-9]+}/notify/{pref}", admin(api.handleSetNotify())).Methods(http.MethodPut)
	v1.Handle("/scan", admin(api.handleScan())).Methods(http.MethodPost)

	api.srv.Handler = router
}
