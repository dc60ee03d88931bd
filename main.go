package main

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/42wim/matrixmirror/config"
	"github.com/42wim/matrixmirror/mirror"
	"github.com/42wim/matrixmirror/pkg/matrixclient"
	"github.com/42wim/matrixmirror/pkg/syncstore"
	"github.com/google/gops/agent"
	prefixed "github.com/matterbridge/logrus-prefixed-formatter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	logger  *logrus.Entry
	version = "0.1.0"
	githash string
)

func main() {
	flagConfig := flag.String("conf", "", "config file (toml, yaml or json)")
	flagVersion := flag.Bool("version", false, "show version")
	flag.Bool("debug", false, "enable debug logging")
	flag.Bool("trace", false, "enable trace logging, dumps every event")
	flag.Bool("gops", false, "enable gops agent")
	flag.String("server", "", "homeserver url")
	flag.String("userid", "", "matrix user id")
	flag.String("token", "", "matrix access token")
	flag.Parse()

	if *flagVersion {
		fmt.Printf("version: %s %s\n", version, githash)
		return
	}

	v, err := config.LoadConfig(*flagConfig)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	bindFlags(v)
	setupLogging(v)

	logger.Infof("matrixmirror %s %s starting", version, githash)

	if v.GetBool("gops") {
		if err := agent.Listen(agent.Options{}); err != nil {
			logger.Error(err)
		}
	}

	if addr := v.GetString("metrics.listen"); addr != "" {
		go serveMetrics(addr, v.GetString("metrics.tlscert"), v.GetString("metrics.tlskey"))
	}

	mc, err := matrixclient.New(matrixclient.Config{
		Server:   v.GetString("matrix.server"),
		UserID:   v.GetString("matrix.userid"),
		Token:    v.GetString("matrix.token"),
		Login:    v.GetString("matrix.login"),
		Password: v.GetString("matrix.password"),
	})
	if err != nil {
		logger.Fatal(err)
	}

	opts := []mirror.Option{
		mirror.WithDedupSize(v.GetInt("matrix.dedupsize")),
		mirror.WithSyncTimeout(v.GetDuration("matrix.synctimeout")),
		mirror.WithErrorDelay(v.GetDuration("matrix.syncerrordelay")),
	}

	if path := v.GetString("matrix.cursordb"); path != "" {
		store, err := syncstore.Open(path, mc.UserID().String())
		if err != nil {
			logger.Fatal(err)
		}
		defer store.Close()

		opts = append(opts, mirror.WithCursorStore(store))
	}

	m := mirror.New(mc, opts...)

	p := newPrinter(os.Stdout, v.GetInt("matrix.wrap"))
	p.attach(m)

	m.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	s := <-sig
	logger.Infof("got %s, stopping", s)

	m.Stop()
}

func bindFlags(v *viper.Viper) {
	for key, name := range map[string]string{
		"debug":         "debug",
		"trace":         "trace",
		"gops":          "gops",
		"matrix.server": "server",
		"matrix.userid": "userid",
		"matrix.token":  "token",
	} {
		if err := v.BindPFlag(key, flag.Lookup(name)); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func setupLogging(v *viper.Viper) {
	ourlog := logrus.New()
	ourlog.SetFormatter(&prefixed.TextFormatter{
		PrefixPadding: 14,
		FullTimestamp: true,
	})

	ourlog.SetLevel(config.LogLevel(v))

	logger = ourlog.WithFields(logrus.Fields{"prefix": "main"})
	config.Logger = ourlog.WithFields(logrus.Fields{"prefix": "config"})
	mirror.SetLogger(ourlog.WithFields(logrus.Fields{"prefix": "mirror"}))
	matrixclient.SetLogger(ourlog.WithFields(logrus.Fields{"prefix": "matrixclient"}))
	syncstore.SetLogger(ourlog.WithFields(logrus.Fields{"prefix": "syncstore"}))
}

func serveMetrics(addr, certPath, keyPath string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	if certPath == "" {
		logger.Infof("serving metrics on http://%s/metrics", addr)

		if err := srv.ListenAndServe(); err != nil {
			logger.Errorf("metrics listener: %s", err)
		}

		return
	}

	kpr, err := newKeypairReloader(certPath, keyPath)
	if err != nil {
		logger.Errorf("metrics listener: %s", err)
		return
	}

	go kpr.watch()

	srv.TLSConfig = &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: kpr.GetCertificate,
	}

	logger.Infof("serving metrics on https://%s/metrics", addr)

	if err := srv.ListenAndServeTLS("", ""); err != nil {
		logger.Errorf("metrics listener: %s", err)
	}
}
