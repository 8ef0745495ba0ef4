package router

import (
	"database/sql"
	"net/http"

	_ "patient-care/docs"
	"patient-care/internal/adapters/storage/localcache"
	mem "patient-care/internal/adapters/storage/memory"
	"patient-care/internal/adapters/storage/mongostore"
	pg "patient-care/internal/adapters/storage/postgres"
	"patient-care/internal/domain/accessgrants"
	"patient-care/internal/domain/carelogs"
	"patient-care/internal/domain/careplans"
	"patient-care/internal/domain/medications"
	"patient-care/internal/domain/patients"
	"patient-care/internal/domain/registration"
	"patient-care/internal/domain/users"
	"patient-care/internal/middleware"
	"patient-care/internal/platform/logger"
	"patient-care/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
)

type Options struct {
	Logger logger.Logger

	AuthVerifier auth.AuthVerifier // puede ser nil (solo DevAuth)
	Tokens       auth.TokenIssuer  // nil: Login devuelve ErrTokensUnavailable (500)

	// DevAuth habilita X-Debug-User-ID.
	DevAuth bool

	CORSOrigins []string

	// Opcionales. Sin DB todo queda in-memory.
	DB    *sql.DB         // Postgres
	Mongo *mongo.Database // care logs como documentos
	Cache *sqlx.DB        // SQLite, outbox de registros offline
}

// App expone lo que main necesita además del handler.
type App struct {
	Handler      http.Handler
	Registration *registration.Service
}

func NewRouter(opts Options) http.Handler {
	return New(opts).Handler
}

func New(opts Options) App {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recover(log))
	r.Use(cors.Handler(corsOptions(opts.CORSOrigins)))
	r.Use(middleware.AuthContext(opts.AuthVerifier, opts.DevAuth))
	r.Use(middleware.RequestLog(log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	s := buildStores(opts, log)

	usersSvc := users.NewService(s.users, opts.Tokens)
	patientsSvc := patients.NewService(s.patients)
	grantsSvc := accessgrants.NewService(s.grants)
	plansSvc := careplans.NewService(s.careplans)
	medsSvc := medications.NewService(s.medications, s.doses, plansSvc)
	logsSvc := carelogs.NewService(s.carelogs)
	regSvc := registration.NewService(registration.Deps{
		Patients:     patientsSvc,
		CarePlans:    plansSvc,
		Medications:  medsSvc,
		Outbox:       s.outbox,
		Connectivity: s.conn,
		Logger:       log,
	})

	// medicación antes que care plans: las medicaciones apuntan al plan
	patientsSvc.OnDelete(medsSvc.DeleteByPatient, plansSvc.DeleteByPatient, grantsSvc.RevokeByPatient, logsSvc.DeleteByPatient)

	authz := accessgrants.NewAuthorizer(grantsSvc, patientsSvc)

	users.RegisterRoutes(r, usersSvc)
	patients.RegisterRoutes(r, patientsSvc, grantsSvc)
	accessgrants.RegisterRoutes(r, grantsSvc, patientsSvc)
	careplans.RegisterRoutes(r, plansSvc, authz)
	medications.RegisterRoutes(r, medsSvc, authz)
	carelogs.RegisterRoutes(r, logsSvc, authz)
	registration.RegisterRoutes(r, regSvc)

	return App{Handler: r, Registration: regSvc}
}

type stores struct {
	users       users.Repository
	patients    patients.Repository
	grants      accessgrants.Repository
	careplans   careplans.Repository
	medications medications.Repository
	doses       medications.DoseRepository
	carelogs    carelogs.Repository
	outbox      registration.Outbox
	conn        registration.Connectivity
}

func buildStores(opts Options, log logger.Logger) stores {
	var s stores

	if db := opts.DB; db != nil {
		s.users = pg.NewUsersRepo(db)
		s.patients = pg.NewPatientsRepo(db)
		s.grants = pg.NewAccessGrantsRepo(db)
		s.careplans = pg.NewCarePlansRepo(db)
		s.medications = pg.NewMedicationsRepo(db)
		s.doses = pg.NewDosesRepo(db)
		s.carelogs = pg.NewCareLogsRepo(db)
		s.conn = registration.PingConnectivity{DB: db}
		log.Info("storage: postgres", nil)
	} else {
		s.users = mem.NewUserRepo()
		s.patients = mem.NewPatientRepo()
		s.grants = mem.NewAccessGrantsRepo()
		s.careplans = mem.NewCarePlanRepo()
		s.medications = mem.NewMedicationRepo()
		s.doses = mem.NewDoseRepo()
		s.carelogs = mem.NewCareLogRepo()
		s.conn = registration.AlwaysOnline{}
		log.Info("storage: in-memory", nil)
	}

	if opts.Mongo != nil {
		s.carelogs = mongostore.NewCareLogsRepo(opts.Mongo)
		log.Info("care logs: mongo", logger.Fields{"database": opts.Mongo.Name()})
	}

	if opts.Cache != nil {
		s.outbox = localcache.NewOutboxRepo(opts.Cache)
		log.Info("registration outbox: sqlite", nil)
	} else {
		s.outbox = mem.NewOutbox()
		if opts.DB != nil {
			log.Warn("registration outbox in memory: queued submissions are lost on restart", nil)
		}
	}

	return s
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.DebugUserHeader},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}
}
