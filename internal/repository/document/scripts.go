package document

import "github.com/kailas-cloud/pdfchat/internal/db"

// createScript writes the hash only when the key is absent.
// Reply: {1, ""} created, {0, <current status>} already present.
var createScript = db.NewScript("document_create", `
if redis.call('EXISTS', KEYS[1]) == 1 then
  return {0, redis.call('HGET', KEYS[1], 'status') or ''}
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return {1, ''}
`)

// transitionScript is a compare-and-set on the status field.
// ARGV: to, n, allowed_1..allowed_n, field, value, ...
// Reply: {1, previous} applied, {0, current} rejected, {-1, ""} missing.
var transitionScript = db.NewScript("document_transition", `
local cur = redis.call('HGET', KEYS[1], 'status')
if not cur then
  return {-1, ''}
end
local n = tonumber(ARGV[2])
local allowed = false
for i = 3, 2 + n do
  if ARGV[i] == cur then
    allowed = true
    break
  end
end
if not allowed then
  return {0, cur}
end
local fields = {'status', ARGV[1]}
for i = 3 + n, #ARGV do
  fields[#fields + 1] = ARGV[i]
end
redis.call('HSET', KEYS[1], unpack(fields))
return {1, cur}
`)
