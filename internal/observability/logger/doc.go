// Package logger expone el logger zap del proceso y su propagación por contexto.
//
// Init se llama una vez en main. Los middlewares HTTP inyectan un logger con
// request_id, method y path vía ToContext; el resto del código lo obtiene con
// From(ctx) y agrega sus propios campos:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("oauth.refresh"))
//	log.Warn("refresh token reuse", logger.ClientID(id), logger.Family(fam))
//
// Sin contexto, From cae al singleton.
package logger
