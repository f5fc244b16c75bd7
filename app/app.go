package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"tapandstamp/config"
	"tapandstamp/pkg/cache"
	controllersLib "tapandstamp/pkg/controllers"
	"tapandstamp/pkg/middlewares"
	"tapandstamp/pkg/passkit"
	"tapandstamp/pkg/passkit/signer"
	repoLib "tapandstamp/pkg/repo"
	"tapandstamp/pkg/repo/driver/db"
	"tapandstamp/pkg/repo/driver/medium"
	"tapandstamp/pkg/usecases"
	"tapandstamp/utilities"
)

// initMediums brings up the push channels that are configured. Either may be left nil.
func initMediums(ctx context.Context, conf *config.TapAndStampConfModel) (usecases.APNsSender, usecases.FCMSender) {
	log := utilities.NewLogger("initMediums")

	var (
		apns usecases.APNsSender
		fcm  usecases.FCMSender
	)

	if conf.APNs.Enabled() {
		log.Info("Initialising APNs")
		err := medium.InitAPNs(medium.APNsConfig{
			KeyPath:    conf.APNs.KeyPath,
			KeyID:      conf.APNs.KeyID,
			TeamID:     conf.APNs.TeamID,
			Production: conf.APNs.Production,
			Timeout:    cast.ToDuration(conf.APNs.Timeout),
		})
		if err != nil {
			logrus.WithError(err).Fatal("unable to initialize apns")
		}
		apns = medium.GetAPNsClient()
	} else {
		log.Warn("APNs key not configured, Apple Wallet passes will not refresh automatically")
	}

	if conf.Firebase.Path != "" {
		log.Info("Initialising firebase")
		if err := medium.InitFirebase(ctx, conf.Firebase.Path); err != nil {
			logrus.WithError(err).Fatal("failed to initialise firebase")
		}
		fcm = medium.GetFirebaseClient()
	}

	return apns, fcm
}

func Run() {
	ctx := context.Background()
	ctx, cancelFn := context.WithCancel(ctx)

	// init the env config
	conf, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("unable to initialize environment variables %s", err.Error())
	}

	// Initialise the logger
	utilities.InitLogger(conf.LogLevel, conf.Mode)
	log := utilities.NewLogger("run")

	log.Info("Initialising pass signer")
	passSigner, err := signer.New(signer.Config{
		PassTypeID:   conf.PassKit.PassTypeID,
		CertPath:     conf.PassKit.CertPath,
		CertPassword: conf.PassKit.CertPassword,
		WWDRCertPath: conf.PassKit.WWDRCertPath,
	})
	if err != nil {
		log.WithError(err).Fatal("unable to load pass signing certificate")
	}

	apns, fcm := initMediums(ctx, conf)

	log.Info("Initialising DB")
	session, err := db.NewCassandraSession(conf.DB)
	if err != nil {
		log.Fatal("unable to create cassandra session ", err.Error())
	}
	defer session.Close()

	log.Info("Initialising cache")
	cache.Init(conf)

	// here initalizing the router
	if conf.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := initRouter(conf)

	api := router.Group(config.PathPrefix)
	root := router.Group("/")

	{
		// repo initialization
		memberRepo := repoLib.NewMemberRepo(session, conf)
		registrationRepo := repoLib.NewRegistrationRepo(session, conf)
		repo := repoLib.NewRepo(session, conf)

		builder := passkit.NewBuilder(passkit.Config{
			PassTypeID:    conf.PassKit.PassTypeID,
			TeamID:        conf.PassKit.TeamID,
			WebServiceURL: conf.Server.PublicURL,
			Signer:        passSigner,
		}, cache.GetLogoCache())

		// initializing usecases
		notifier := usecases.NewPassNotifier(conf.PassKit.PassTypeID, registrationRepo, apns, fcm)
		stampUseCases := usecases.NewStampUseCases(memberRepo, notifier, conf.Stamp.CooldownMinutes)
		passUseCases := usecases.NewPassUseCases(
			usecases.PassConfig{PassTypeID: conf.PassKit.PassTypeID, AuthSecret: conf.PassKit.AuthSecret},
			memberRepo, registrationRepo, builder, cache.GetLogoCache(),
		)
		useCases := usecases.NewUseCases(repo, cast.ToDuration(conf.DB.Timeout))

		// initializing middleware
		m := middlewares.NewMiddlewares(passUseCases)

		// initializing controllersLib
		stampControllers := controllersLib.NewStampController(api, stampUseCases, m)
		memberControllers := controllersLib.NewMemberController(api, passUseCases, m)
		passKitControllers := controllersLib.NewPassKitController(root, passUseCases, m)
		controllers := controllersLib.NewController(api, useCases, m)

		// init the routes
		stampControllers.InitRoutes()
		memberControllers.InitRoutes()
		passKitControllers.InitRoutes()
		controllers.InitRoutes()
		controllersLib.InitMetricsRoute(router)
	}

	// run the app
	launch(ctx, cancelFn, router)
}

func initRouter(conf *config.TapAndStampConfModel) *gin.Engine {
	router := gin.Default()

	origins := conf.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router.Use(
		cors.New(
			cors.Config{
				AllowOrigins: origins,
				AllowMethods: []string{"POST", "DELETE", "GET", "OPTIONS"},
				AllowHeaders: []string{
					"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "accept",
					"origin", "Cache-Control", "If-Modified-Since",
				},
				ExposeHeaders: []string{"Content-Disposition", "Last-Modified"},
				MaxAge:        12 * time.Hour,
			},
		),
	)

	if conf.Mode == "stage" || conf.Mode == "local" {
		router.GET("/debug/pprof/*profile", gin.WrapF(pprof.Index))
	}

	// .pkpass and PNG bodies are already compressed
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/passes", "/passkit/v1/passes"}),
		gzip.WithExcludedExtensions([]string{".png", ".pkpass"})))

	return router
}

// launch
func launch(ctx context.Context, cancelFn context.CancelFunc, router *gin.Engine) {
	log := utilities.NewLogger("launch")
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.GetConfig().Server.Port),
		Handler: router,
	}

	go func() {
		// service connections
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()
	log.Infof("Server listening on %d", config.GetConfig().Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown Server ...")
	cancelFn()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	log.Println("Server exiting")
}
