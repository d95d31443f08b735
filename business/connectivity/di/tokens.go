// Package di contains dependency injection tokens for the connectivity context.
package di

import (
	"github.com/fd1az/pooldash/business/connectivity/app"
	"github.com/fd1az/pooldash/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ConnectionManager = di.NewToken[*app.ConnectionManager]("connectivity.ConnectionManager")
	TransactionRelay  = di.NewToken[*app.TransactionRelay]("connectivity.TransactionRelay")
)

// Private dependency tokens - internal to the connectivity module
var (
	Container    = di.NewToken[app.Container]("connectivity:container")
	BackupDialer = di.NewToken[app.BackupDialer]("connectivity:backupDialer")
)

func GetConnectionManager(c di.ServiceRegistry) *app.ConnectionManager {
	return di.GetToken(c, ConnectionManager)
}

func GetTransactionRelay(c di.ServiceRegistry) *app.TransactionRelay {
	return di.GetToken(c, TransactionRelay)
}

func GetContainer(c di.ServiceRegistry) app.Container {
	return di.GetToken(c, Container)
}

func GetBackupDialer(c di.ServiceRegistry) app.BackupDialer {
	return di.GetToken(c, BackupDialer)
}
