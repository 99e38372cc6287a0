package config

import (
	"reflect"

	"github.com/gocql/gocql"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// CustomHooks replaces viper's default decode hook, so it has to carry the duration and slice hooks forward.
var CustomHooks = []viper.DecoderConfigOption{
	viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		ConsistencyDecodeHook(),
	)),
}

// ConsistencyDecodeHook turns strings such as "quorum" or "LOCAL_ONE" into a gocql.Consistency.
func ConsistencyDecodeHook() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(gocql.One) {
			return data, nil
		}
		return gocql.ParseConsistencyWrapper(data.(string))
	}
}
