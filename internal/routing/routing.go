package routing

import (
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/mongo"

	"workmesh/pkg/aggregate"
	"workmesh/pkg/handlers"
	"workmesh/pkg/task"
	"workmesh/pkg/user"
)

func InitRoutes(api *mux.Router, db *sql.DB, mongoDB *mongo.Database, logger *slog.Logger) {

	userService := user.NewService(db)
	userHandler := handlers.NewUserHandler(userService, logger)

	recorder := aggregate.NewRecorder(aggregate.NewMySQLRepo(db))
	taskService := task.NewService(task.NewMongoRepo(mongoDB), recorder)
	workerHandler := handlers.NewWorkerHandler(recorder, taskService, logger)

	/* -+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+ */

	authRouter := api.PathPrefix("").Subrouter()
	workerRouter := api.PathPrefix("").Subrouter()

	/* auth routers */
	authRouter.HandleFunc("/register", userHandler.Register).Methods("POST").Name("register")
	authRouter.HandleFunc("/login", userHandler.Login).Methods("POST").Name("login")
	authRouter.HandleFunc("/logout", userHandler.Logout).Methods("POST").Name("logout")

	/* worker api routers */
	workerRouter.HandleFunc("/report_uptime", workerHandler.ReportUptime).Methods("POST")
	workerRouter.HandleFunc("/submit_bandwidth", workerHandler.SubmitBandwidth).Methods("POST")
	workerRouter.HandleFunc("/get_task", workerHandler.GetTask).Methods("POST")
	workerRouter.HandleFunc("/submit_task/{task_id:[a-zA-Z0-9]+}", workerHandler.SubmitTask).Methods("POST")
	workerRouter.HandleFunc("/create_task", workerHandler.CreateTask).Methods("POST")
	workerRouter.HandleFunc("/stats", workerHandler.GetStats).Methods("GET")
}

func StartServer(r *mux.Router) {
	fmt.Println("\n\033[32m", "The server is running on http://localhost:8082", "\033[0m")
	if err := http.ListenAndServe(":8082", r); err != nil {
		log.Fatal("Server failed:", err)
	}
}
