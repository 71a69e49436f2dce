package docs

// @title           Ridehail API
// @version         1.0
// @description     Dispatch and trip lifecycle engine for a ride-hailing fleet. Covers trip requests, driver matching, PIN-verified trip starts, live WebSocket streams, trip sharing and incident reporting.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.email  support@safarigo.app

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
