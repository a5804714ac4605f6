// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/lidx/pkg/graph"
)

func edgesOfKind(edges []graph.EdgeInput, kind graph.EdgeKind) []graph.EdgeInput {
	var out []graph.EdgeInput
	for _, e := range edges {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// TestPythonExtractor_FastAPIRouteAndCall covers spec §8 seed scenario 1: a
// FastAPI route decorator plus a requests.post call in the same module must
// produce one HTTP_ROUTE and one HTTP_CALL, both normalised to /api/users/{}.
func TestPythonExtractor_FastAPIRouteAndCall(t *testing.T) {
	src := []byte(`from fastapi import FastAPI
app = FastAPI()
@app.get("/api/users/{id}")
def handler(): pass
import requests
requests.post("/api/users/123")
`)
	e := NewPythonExtractor()
	moduleQualname := e.ModuleQualnameFromRelPath("svc/api.py")
	require.Equal(t, "svc.api", moduleQualname)

	file, err := e.Extract(src, "svc/api.py", moduleQualname)
	require.NoError(t, err)

	routes := edgesOfKind(file.Edges, graph.EdgeHTTPRoute)
	require.Len(t, routes, 1)
	require.Equal(t, "/api/users/{}", routes[0].TargetQualname)
	require.Equal(t, "svc.api.handler", routes[0].SourceQualname)
	require.Contains(t, routes[0].Detail, `"method":"GET"`)
	require.Contains(t, routes[0].Detail, `"framework":"fastapi"`)

	calls := edgesOfKind(file.Edges, graph.EdgeHTTPCall)
	require.Len(t, calls, 1)
	require.Equal(t, "/api/users/{}", calls[0].TargetQualname)
	require.Equal(t, "svc.api", calls[0].SourceQualname)
	require.Contains(t, calls[0].Detail, `"method":"POST"`)
	require.Contains(t, calls[0].Detail, `"framework":"requests"`)
}

// TestRustExtractor_TonicGRPCImplAndCall covers spec §8 seed scenario 2: a
// tonic server impl plus a fully-qualified client call must resolve to the
// same normalised "/<package>.<service>/<rpc>" target, package included.
func TestRustExtractor_TonicGRPCImplAndCall(t *testing.T) {
	src := []byte(`impl helloworld::greeter_server::Greeter for MyGreeter {
    async fn say_hello(&self) {}
}

async fn run() {
    let mut client = helloworld::greeter_client::GreeterClient::connect("http://localhost").await.unwrap();
    client.say_hello().await.unwrap();
}
`)
	e := NewRustExtractor()
	moduleQualname := e.ModuleQualnameFromRelPath("src/lib.rs")

	file, err := e.Extract(src, "src/lib.rs", moduleQualname)
	require.NoError(t, err)

	impls := edgesOfKind(file.Edges, graph.EdgeRPCImpl)
	require.Len(t, impls, 1)
	require.Equal(t, "/helloworld.greeter/sayhello", impls[0].TargetQualname)
	require.Contains(t, impls[0].Detail, `"package":"helloworld"`)
	require.Contains(t, impls[0].Detail, `"service":"Greeter"`)

	calls := edgesOfKind(file.Edges, graph.EdgeRPCCall)
	require.Len(t, calls, 1)
	require.Equal(t, impls[0].TargetQualname, calls[0].TargetQualname)
	require.Contains(t, calls[0].Detail, `"package":"helloworld"`)
}

// TestGRPCServiceFromTraitPath_PackageDerivation pins the package-extraction
// rule ported from original_source's grpc_service_from_trait: the package is
// every trait-path segment before the "_server" module, not the impl target.
func TestGRPCServiceFromTraitPath_PackageDerivation(t *testing.T) {
	svc, ok := grpcServiceFromTraitPath("helloworld::greeter_server::Greeter")
	require.True(t, ok)
	require.Equal(t, "helloworld", svc.pkg)
	require.Equal(t, "Greeter", svc.service)

	svc, ok = grpcServiceFromTraitPath("crate::proto::order::order_server::OrderServiceServer")
	require.True(t, ok)
	require.Equal(t, "proto.order", svc.pkg)
	require.Equal(t, "OrderServiceServer", svc.service)

	_, ok = grpcServiceFromTraitPath("Greeter")
	require.False(t, ok)
}

// TestGRPCServiceFromClientPath mirrors grpc_service_from_client_path: the
// service is the client type with its "Client" suffix stripped, the package
// comes from the "_client" module segment in the same qualified path.
func TestGRPCServiceFromClientPath(t *testing.T) {
	svc, ok := grpcServiceFromClientPath("helloworld::greeter_client::GreeterClient")
	require.True(t, ok)
	require.Equal(t, "helloworld", svc.pkg)
	require.Equal(t, "Greeter", svc.service)

	svc, ok = grpcServiceFromClientPath("GreeterClient")
	require.True(t, ok)
	require.Equal(t, "", svc.pkg)
	require.Equal(t, "Greeter", svc.service)

	_, ok = grpcServiceFromClientPath("SomeOtherType")
	require.False(t, ok)
}

// TestBicepAndPythonExtractors_ChannelBridge covers spec §8 seed scenario 3:
// a Bicep Service Bus topic and a Python @subscribe(topic=...) handler must
// normalise to the identical channel:// target so the cross-language hop can
// be resolved downstream by the graph-analytics bridge.
func TestBicepAndPythonExtractors_ChannelBridge(t *testing.T) {
	bicepSrc := []byte(`resource ordersTopic 'Microsoft.ServiceBus/namespaces/topics@2021-11-01' = {
  name: 'sbt-orders'
}
`)
	bicepExtractor := NewBicepExtractor()
	bicepModule := bicepExtractor.ModuleQualnameFromRelPath("infra/servicebus.bicep")
	bicepFile, err := bicepExtractor.Extract(bicepSrc, "infra/servicebus.bicep", bicepModule)
	require.NoError(t, err)

	publishes := edgesOfKind(bicepFile.Edges, graph.EdgeChannelPublish)
	require.Len(t, publishes, 1)
	require.Equal(t, "channel://orders", publishes[0].TargetQualname)

	pySrc := []byte(`@subscribe(topic="orders")
def handle_order_created(): pass
`)
	pyExtractor := NewPythonExtractor()
	pyModule := pyExtractor.ModuleQualnameFromRelPath("svc/consumers.py")
	pyFile, err := pyExtractor.Extract(pySrc, "svc/consumers.py", pyModule)
	require.NoError(t, err)

	subscribes := edgesOfKind(pyFile.Edges, graph.EdgeChannelSubscribe)
	require.Len(t, subscribes, 1)
	require.Equal(t, "channel://orders", subscribes[0].TargetQualname)
	require.Equal(t, "svc.consumers.handle_order_created", subscribes[0].SourceQualname)

	require.Equal(t, publishes[0].TargetQualname, subscribes[0].TargetQualname)
}
