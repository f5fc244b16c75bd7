package db

import "tapandstamp/pkg/consts"

var dbTableSchemas = map[string]string{
	consts.Merchants:                 merchantsSchema,
	consts.MerchantsBySlug:           merchantsBySlugSchema,
	consts.Members:                   membersSchema,
	consts.Visits:                    visitsSchema,
	consts.PassRegistrations:         passRegistrationsSchema,
	consts.PassRegistrationsByDevice: passRegistrationsByDeviceSchema,
}

var merchantsSchema = `
CREATE TABLE IF NOT EXISTS  %s.merchants (
id varchar,
slug varchar,
name varchar,
reward_goal int,
branding text,
branding_version int,
branding_updated timestamp,
created timestamp,
PRIMARY KEY (id)
)
`

var merchantsBySlugSchema = `
CREATE TABLE IF NOT EXISTS  %s.merchants_by_slug (
slug varchar,
id varchar,
PRIMARY KEY (slug)
)
`

var membersSchema = `
CREATE TABLE IF NOT EXISTS  %s.members (
id varchar,
merchant_id varchar,
name varchar,
device_type varchar,
stamp_count int,
reward_available boolean,
last_stamp_at timestamp,
created timestamp,
updated timestamp,
PRIMARY KEY (id)
)
`

var visitsSchema = `
CREATE TABLE IF NOT EXISTS  %s.visits (
merchant_id varchar,
stamped_at timestamp,
id uuid,
member_id varchar,
PRIMARY KEY (merchant_id, stamped_at, id)
) WITH CLUSTERING ORDER BY (stamped_at desc, id asc)
`

var passRegistrationsSchema = `
CREATE TABLE IF NOT EXISTS  %s.pass_registrations (
member_id varchar,
pass_type_id varchar,
device_id varchar,
push_token varchar,
platform varchar,
created timestamp,
PRIMARY KEY ((member_id, pass_type_id), device_id)
)
`

var passRegistrationsByDeviceSchema = `
CREATE TABLE IF NOT EXISTS  %s.pass_registrations_by_device (
device_id varchar,
pass_type_id varchar,
member_id varchar,
created timestamp,
PRIMARY KEY ((device_id, pass_type_id), member_id)
)
`
