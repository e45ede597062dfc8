package main

import (
	_ "github.com/TUD-INF-IAI-MCI/matshare/src/admintools"
	_ "github.com/TUD-INF-IAI-MCI/matshare/src/migration"
	"github.com/TUD-INF-IAI-MCI/matshare/src/service"
)

func main() {
	service.ServiceCommand.Execute()
}
