package main

import (
	"workmesh/internal/config"
	"workmesh/internal/logger"
	"workmesh/internal/mongo"
	"workmesh/internal/mysql"
	"workmesh/internal/routing"
	"workmesh/pkg/middleware"
	"workmesh/pkg/nonce"

	"github.com/gorilla/mux"
)

func main() {
	config.Load() // load env var from .env

	db := mysql.LoadDB()
	defer db.Close()

	mongoDB := mongo.LoadDB()

	logger := logger.Load()

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Panic)
	api.Use(middleware.CheckNonceJWT(nonce.NewMySQLRepo(db)))

	routing.InitRoutes(api, db, mongoDB, logger)
	routing.StartServer(r) // start server on localhost:8082
}
