package cache

import (
	"time"

	"github.com/spf13/cast"

	"tapandstamp/config"
	"tapandstamp/utilities"
	"tapandstamp/utilities/http_client"
)

func Init(conf *config.TapAndStampConfModel) {
	log := utilities.NewLogger("cache.Init")

	ttl := cast.ToDuration(conf.Logo.CacheTTL)
	if ttl <= 0 {
		ttl = time.Hour
	}

	timeout := cast.ToDuration(conf.Logo.FetchTimeout)
	_ = InitLogoCache(ttl, NewHTTPLogoSource(http_client.GetClient(), timeout, conf.Logo.MaxSize, conf.Logo.SupportedTypes))

	log.Infof("logo cache ready with ttl %s", ttl)
}
