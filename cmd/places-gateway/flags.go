package main

type flagType int
type flagMap map[flagType]string

const (
	listenAddress flagType = iota
	servicePort
	logFormat

	backendURL
	redisURL
	dbHost
	dbUser
	dbPassword
	dbPort
	dbName
	dbSSLMode
	allowedOrigins

	configurationFile
)
