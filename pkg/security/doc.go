/*
Package security is the parent of the credential-handling code the search
core actually needs.

The upstream detainee-lookup endpoint is public, so this package carries
none of the inbound-auth or transport-TLS machinery a multi-tenant service
would need. What remains is [secrets]: resolving proxy-provider credentials
from environment variables or mounted files instead of plaintext
configuration.

	envProvider := secrets.NewEnvProvider("ICELOCATOR_")
	manager := secrets.NewManager([]secrets.SecretProvider{envProvider}, cacheConfig)

	resolved, err := manager.ResolveReferences(ctx, "${secret:proxy-password}")
	if err != nil {
		log.Fatal(err)
	}

See the secrets subpackage for the full provider and caching model.
*/
package security
