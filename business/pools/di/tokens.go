// Package di contains dependency injection tokens for the pools context.
package di

import (
	"github.com/fd1az/pooldash/business/pools/app"
	"github.com/fd1az/pooldash/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Store        = di.NewToken[*app.Store]("pools.Store")
	PoolService  = di.NewToken[*app.PoolService]("pools.PoolService")
	TokenService = di.NewToken[*app.TokenService]("pools.TokenService")
	Session      = di.NewToken[*app.Session]("pools.Session")
)

// Private dependency tokens - internal to the pools module
var (
	PoolSource  = di.NewToken[app.PoolSource]("pools:poolSource")
	TokenReader = di.NewToken[app.TokenReader]("pools:tokenReader")
)

func GetStore(c di.ServiceRegistry) *app.Store {
	return di.GetToken(c, Store)
}

func GetPoolService(c di.ServiceRegistry) *app.PoolService {
	return di.GetToken(c, PoolService)
}

func GetTokenService(c di.ServiceRegistry) *app.TokenService {
	return di.GetToken(c, TokenService)
}

func GetSession(c di.ServiceRegistry) *app.Session {
	return di.GetToken(c, Session)
}

func GetPoolSource(c di.ServiceRegistry) app.PoolSource {
	return di.GetToken(c, PoolSource)
}

func GetTokenReader(c di.ServiceRegistry) app.TokenReader {
	return di.GetToken(c, TokenReader)
}
